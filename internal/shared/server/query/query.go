package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Int reads an integer query parameter, returning def when it is absent.
func Int(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

// String reads a trimmed query parameter.
func String(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Query(key))
}

// ID returns the trimmed path parameter key and whether it is a UUID.
// Every primary key is a UUID, so anything else cannot name a row.
func ID(c *gin.Context, key string) (string, bool) {
	id := strings.TrimSpace(c.Param(key))
	if _, err := uuid.Parse(id); err != nil {
		return id, false
	}
	return id, true
}

// TotalPages returns ceil(total/pageSize); an empty result has 0 pages.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
