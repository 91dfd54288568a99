package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response
func JSONError(c *gin.Context, status int, err error, message string) {
	JSONErrorWithDetail(c, status, err, message, nil)
}

// JSONErrorWithDetail sends a structured error response with extra fields the client
// can act on, such as the minimum acceptable bid
func JSONErrorWithDetail(c *gin.Context, status int, err error, message string, detail gin.H) {
	body := gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	}
	for k, v := range detail {
		body[k] = v
	}
	c.JSON(status, body)
}
