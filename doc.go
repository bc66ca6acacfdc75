// Package main implements acmoj, a command line client for the ACMOJ online
// judge API.
//
// # Usage
//
//	acmoj [--token TOKEN] submit --problem-id ID --git-url URL
//	acmoj [--token TOKEN] status --submission-id ID
//
// The submit command returns a record containing the submission id. Judging
// takes a while; a status of "pending" or "compiling" means the evaluation is
// still queued or running.
//
// # Configuration
//
// The token is read from --token, the ACMOJ_TOKEN environment variable (a
// .env file in the working directory is honoured) or the token key of the
// config file. The config file defaults to acmoj.json in the current
// directory and may set api_base, token, user_agent and timeout (a duration
// string such as "10s").
//
// Results are printed as one line of JSON on stdout. Diagnostics go to
// stderr and any failure exits with status 1.
package main
