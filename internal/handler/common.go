package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func paginationParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if err != nil || size < 1 || size > 500 {
		size = 50
	}
	return page, size
}
