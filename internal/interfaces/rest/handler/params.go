package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-service/internal/domain"
	"github.com/pot-code/learning-service/internal/infrastructure/validate"
)

// courseIDParam parse the courseId path parameter, ok is false when a 400 has been written
func courseIDParam(c echo.Context) (id int64, ok bool, err error) {
	raw := c.Param("courseId")
	id, perr := strconv.ParseInt(raw, 10, 64)
	if perr != nil || id <= 0 {
		return 0, false, validationFailed(c, []*validate.FieldError{
			validate.NewFieldError("courseId", "courseId must be a positive integer"),
		})
	}
	return id, true, nil
}

// pageQuery read page_no and page_size from the query string
func pageQuery(c echo.Context, v validate.Validator) (page domain.PageQuery, ok bool, err error) {
	var fields []*validate.FieldError
	for name, dst := range map[string]*int{"page_no": &page.PageNo, "page_size": &page.PageSize} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, perr := strconv.Atoi(raw)
		if perr != nil {
			fields = append(fields, validate.NewFieldError(name, name+" must be an integer"))
			continue
		}
		*dst = n
	}
	if len(fields) == 0 {
		fields = v.Struct(page)
	}
	if len(fields) > 0 {
		return page, false, validationFailed(c, fields)
	}
	return page.Normalize(), true, nil
}
