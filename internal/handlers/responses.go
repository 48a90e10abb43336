package handlers

import (
	"github.com/gin-gonic/gin"
)

// Response is the envelope for every JSON body the API returns
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondList(c *gin.Context, status int, data interface{}, count int) {
	c.JSON(status, Response{Success: true, Data: data, Count: &count})
}

func respondMessage(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// abortWithError writes a failure envelope and stops the handler chain
func abortWithError(c *gin.Context, status int, message string, details interface{}) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message, Details: details})
}
