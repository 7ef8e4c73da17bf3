package delivery

import (
	"fmt"
	"net/http"
	"strconv"

	"tupilates/domain"
	"tupilates/utils"

	"github.com/gin-gonic/gin"
)

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindAmbiguous:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func respondBindError(c *gin.Context, name, fn string, err error, message string) {
	utils.PrintLogInfo(&name, http.StatusBadRequest, fn, &err)
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"errors":  utils.TranslateValidationError(err),
		"message": message,
	})
}

// respondError maps domain problems to 4xx and anything else to a generic 5xx.
func respondError(c *gin.Context, name, fn string, err error, message string) {
	if list, ok := domain.AsErrorList(err); ok {
		status := statusFor(list.Kind())
		utils.PrintLogInfo(&name, status, fn, &err)
		c.JSON(status, gin.H{
			"success": false,
			"errors":  list.Messages(),
			"message": message,
		})
		return
	}

	if utils.IsUniqueViolation(err) {
		utils.PrintLogInfo(&name, http.StatusConflict, fn, &err)
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   utils.TranslateDBError(err),
			"message": message,
		})
		return
	}

	utils.PrintLogInfo(&name, http.StatusInternalServerError, fn, &err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   utils.TranslateDBError(err),
		"message": message,
	})
}

func respondOK(c *gin.Context, name, fn string, status int, data interface{}) {
	utils.PrintLogInfo(&name, status, fn, nil)
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func parseIDParam(c *gin.Context, name, fn, param, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		if err == nil {
			err = fmt.Errorf("invalid %s", param)
		}
		utils.PrintLogInfo(&name, http.StatusBadRequest, fn, &err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid " + param + " parameter",
			"message": message,
		})
		return 0, false
	}
	return uint(id), true
}
