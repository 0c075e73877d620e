package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
)

// bindJSON decodes the body into v and answers 400 when it is not valid JSON.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid JSON body"))
		return false
	}
	return true
}

// pageParams reads ?page=&limit=. Invalid values fall back to the service
// defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", c.Query("perPage")))
	return page, limit
}
