package main

// General API documentation for swaggo. Generate with
// `swag init -g cmd/nlpd/docs.go` and build with -tags=swagger.
//
// @title           nlpd API
// @version         1.0
// @description     HTTP API for sentiment analysis, entity recognition and summarization run through a background inference worker.
//
// @contact.name   nlpd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
