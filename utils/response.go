package utils

import "github.com/gin-gonic/gin"

// JSONResponse is the uniform envelope for API responses: status is either
// "success" or "error"; data carries the payload, message the error text.
type JSONResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a success envelope with the given HTTP status.
func Success(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Status: "success",
		Data:   data,
	})
}

// Error writes an error envelope with a human-readable message.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, JSONResponse{
		Status:  "error",
		Message: message,
	})
}
