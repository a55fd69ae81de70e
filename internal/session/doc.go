// Package session keeps normalized uploads in memory between requests.
package session
