// Package services holds the error taxonomy shared by pipeline components
// and, in subpackages, the clients for external tools.
package services
