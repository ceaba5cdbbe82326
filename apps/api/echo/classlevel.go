package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/classlevel"
	"github.com/lanes-app/lanes/core/user"
)

func (s *Server) registerClassLevelAPI(og *echo.Group) {
	admin := rolesMiddleware(user.RoleAdmin)

	cg := og.Group("/class-levels")
	cg.GET("", s.queryClassLevels)
	cg.POST("", s.createClassLevel, admin)
	cg.GET("/:id", s.retrieveClassLevel)
	cg.PUT("/:id", s.updateClassLevel, admin)
	cg.DELETE("/:id", s.destroyClassLevel, admin)

	cg.GET("/:id/skills", s.querySkills)
	cg.POST("/:id/skills", s.createSkill, admin)
	cg.PUT("/:id/skills/order", s.orderSkills, admin)
	cg.PUT("/:id/skills/:skillID", s.updateSkill, admin)
	cg.DELETE("/:id/skills/:skillID", s.destroySkill, admin)
}

func (s *Server) queryClassLevels(ctx echo.Context) error {
	levels, err := s.deps.ClassLevelSvc.Query(ctx.Request().Context(), orgOf(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying class levels")
	}
	return ctx.JSON(http.StatusOK, levels)
}

func (s *Server) createClassLevel(ctx echo.Context) error {
	var data classlevel.NewClassLevel
	if err := bind(ctx, &data, "NewClassLevel"); err != nil {
		return err
	}
	cl, err := s.deps.ClassLevelSvc.Create(ctx.Request().Context(), orgOf(ctx).ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cl)
}

func (s *Server) retrieveClassLevel(ctx echo.Context) error {
	cl, err := s.deps.ClassLevelSvc.Get(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (s *Server) updateClassLevel(ctx echo.Context) error {
	var data classlevel.UpdateClassLevel
	if err := bind(ctx, &data, "UpdateClassLevel"); err != nil {
		return err
	}
	cl, err := s.deps.ClassLevelSvc.Update(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cl)
}

func (s *Server) destroyClassLevel(ctx echo.Context) error {
	if err := s.deps.ClassLevelSvc.Delete(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) querySkills(ctx echo.Context) error {
	skills, err := s.deps.ClassLevelSvc.QuerySkills(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, skills)
}

func (s *Server) createSkill(ctx echo.Context) error {
	var data classlevel.NewSkill
	if err := bind(ctx, &data, "NewSkill"); err != nil {
		return err
	}
	sk, err := s.deps.ClassLevelSvc.CreateSkill(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sk)
}

func (s *Server) orderSkills(ctx echo.Context) error {
	var data classlevel.SkillOrder
	if err := bind(ctx, &data, "SkillOrder"); err != nil {
		return err
	}
	skills, err := s.deps.ClassLevelSvc.OrderSkills(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, skills)
}

func (s *Server) updateSkill(ctx echo.Context) error {
	var data classlevel.UpdateSkill
	if err := bind(ctx, &data, "UpdateSkill"); err != nil {
		return err
	}
	sk, err := s.deps.ClassLevelSvc.UpdateSkill(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), ctx.Param("skillID"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sk)
}

func (s *Server) destroySkill(ctx echo.Context) error {
	err := s.deps.ClassLevelSvc.DeleteSkill(ctx.Request().Context(), orgOf(ctx).ID, ctx.Param("id"), ctx.Param("skillID"))
	if err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
