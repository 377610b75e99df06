// Package helpers holds small utilities shared by the commands and internal packages.
package helpers
