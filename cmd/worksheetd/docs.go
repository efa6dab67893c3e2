package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           worksheetd API
// @version         1.0
// @description     HTTP API for evaluating worksheet cells in supervised interpreter processes.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
