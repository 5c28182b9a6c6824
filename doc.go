// Package main provides the entry point for the account console, a
// self-service web application where users manage their profile, review
// and revoke browser sessions and configure security settings. It runs
// a web server using the Fiber framework with server-rendered pages and
// uses gorm for data persistence. Local password login with optional
// TOTP and upstream OpenID Connect login are supported.
package main
