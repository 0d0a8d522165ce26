package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
)

// ParseID parses a positive numeric identifier.
func ParseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid id %q", apierrors.ErrValidation, raw)
	}
	return id, nil
}

// ParamID parses the named path parameter with ParseID.
func ParamID(c *gin.Context, name string) (uint64, error) {
	id, err := ParseID(c.Param(name))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", apierrors.ErrValidation, name)
	}
	return id, nil
}
