// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for remote monster pack downloads.
var HTTPClient = &http.Client{
	Timeout: 300 * time.Second, // 5 minutes for large packs
}
