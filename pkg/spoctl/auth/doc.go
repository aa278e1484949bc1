// Package auth acquires Entra ID access tokens for SharePoint resources,
// supporting device code, authorization code and client credentials grants,
// with resource-bound token caching in the OS keychain or a local file.
package auth
