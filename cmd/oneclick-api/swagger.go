// Package main
//
// @title           Oneclick API
// @version         1.0
// @description     REST facade over Transbank Oneclick Mall: card inscriptions, mall authorizations, captures and refunds, with JWT auth, Kafka events and metrics.
// @BasePath        /v1
//
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description Type "Bearer {token}" to authenticate.
package main
