package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"csrgive.com/app/internal/shared/apperr"
)

func ParseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFoundErr("Resource not found.")
	}
	return uint(id), nil
}

func QueryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// QueryDate accepts YYYY-MM-DD or RFC 3339. An empty value yields nil.
func QueryDate(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.InvalidErr("Invalid date.", map[string]string{key: "Use YYYY-MM-DD or RFC 3339."})
}
