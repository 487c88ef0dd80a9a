package tool

import "github.com/gin-gonic/gin"

// FastReturnError is the JSON body of a failed helper request.
func FastReturnError(msg string) gin.H {
	return gin.H{
		"status": "error",
		"error":  msg,
	}
}

// FastReturnSuccessWithData wraps data in the JSON body of a successful helper request.
func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"status": "ok",
		"data":   data,
	}
}
