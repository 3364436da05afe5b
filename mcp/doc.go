// Package mcp implements the Model Context Protocol server for levels.
//
// The server exposes two tools to MCP clients:
// - search_predictors finds prediction functions for a task
// - create_prediction runs a predictor on Muna and returns its results
package mcp
