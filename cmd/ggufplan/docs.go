package main

// General API documentation for swaggo. Run `swag init` to regenerate docs.
//
// @title           ggufplan API
// @version         1.0
// @description     HTTP API for GGUF memory estimation and VRAM-aware load planning.
//
// @contact.name   ggufplan maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
