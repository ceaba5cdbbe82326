package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
)

var (
	orderingParam = "ordering"

	// query field -> column
	organizationOrderings = map[string]string{
		"name":       "name",
		"email":      "email",
		"created_at": "created_at",
	}
	lessonOrderings = map[string]string{
		"name":        "lessons.name",
		"day_of_week": "lessons.day_of_week",
		"start_time":  "lessons.start_time",
		"start_date":  "lessons.start_date",
		"created_at":  "lessons.created_at",
	}
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=name,-created_at` keeping only the fields of allowed.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	parsed := make([]core.DBOrdering, 0)
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		parsed = append(parsed, core.DBOrdering{Field: field, Ascending: !descending})
	}
	ord.Orderings = core.AllowedOrderings(parsed, allowed)
}

// bind binds the request body to dst.
func bind(ctx echo.Context, dst interface{}, name string) error {
	if err := ctx.Bind(dst); err != nil {
		if _, ok := err.(*echo.HTTPError); ok {
			return err
		}
		return errors.Wrap(err, "binding to "+name)
	}
	return nil
}

// queryBool returns the boolean query param; false when missing or malformed.
func queryBool(ctx echo.Context, name string) bool {
	b, _ := strconv.ParseBool(ctx.QueryParam(name))
	return b
}

// queryInt returns the integer query param, or def when missing or malformed.
func queryInt(ctx echo.Context, name string, def int) int {
	i, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil {
		return def
	}
	return i
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	// UpdateMeRequest is what users may change on their own account.
	UpdateMeRequest struct {
		Name            string `json:"name"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}

	MeResponse struct {
		User         interface{} `json:"user"`
		InstructorID string      `json:"instructor_id,omitempty"`
		ParentID     string      `json:"parent_id,omitempty"`
	}

	CountResponse struct {
		Count int64 `json:"count"`
	}
)

func (lr *LoginRequest) Clean() {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
}

func (pr *PasswordResetRequest) Clean() {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
}
