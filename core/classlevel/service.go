package classlevel

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("class level not found")
	ErrSkillNotFound = core.NewNotFoundError("skill not found")
	ErrInUse         = core.NewConflictError("class level is used by lessons")
	errBadOrder      = errors.New("skill_ids must list every skill of the class level exactly once")
)

type Repository interface {
	CreateClassLevel(ctx context.Context, cl ClassLevel) (ClassLevel, error)
	// QueryClassLevels returns the class levels of the organization ordered by position.
	QueryClassLevels(ctx context.Context, orgID string) ([]ClassLevel, error)
	GetClassLevel(ctx context.Context, orgID, id string) (ClassLevel, error)
	UpdateClassLevel(ctx context.Context, cl ClassLevel) (ClassLevel, error)
	NextClassLevelPosition(ctx context.Context, orgID string) (int, error)
	CountLessons(ctx context.Context, classLevelID string) (int64, error)
	DeleteSkillProgressByClassLevel(ctx context.Context, classLevelID string) error
	DeleteSkillsByClassLevel(ctx context.Context, classLevelID string) error
	DeleteClassLevel(ctx context.Context, id string) error

	CreateSkill(ctx context.Context, sk Skill) (Skill, error)
	// QuerySkills returns the skills of the class level ordered by position.
	QuerySkills(ctx context.Context, classLevelID string) ([]Skill, error)
	GetSkill(ctx context.Context, classLevelID, id string) (Skill, error)
	UpdateSkill(ctx context.Context, sk Skill) (Skill, error)
	NextSkillPosition(ctx context.Context, classLevelID string) (int, error)
	SetSkillPositions(ctx context.Context, classLevelID string, skillIDs []string) error
	// SeedSkillProgress creates NOT_STARTED progress of the skill for every enrollment of lessons at the class level.
	SeedSkillProgress(ctx context.Context, classLevelID, skillID string, at time.Time) (int64, error)
	DeleteSkillProgressBySkill(ctx context.Context, skillID string) error
	DeleteSkill(ctx context.Context, id string) error
}

type Service struct {
	repo     Repository
	tx       core.Transactor
	validate *validator.Validate
	logger   core.Logger
}

func NewService(repo Repository, tx core.Transactor, validate *validator.Validate, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, tx: tx, validate: validate, logger: logger}
}

// Create adds a class level; without a position it goes last.
func (svc *Service) Create(ctx context.Context, orgID string, nl NewClassLevel) (ClassLevel, error) {
	nl.Clean()
	if err := svc.validate.Struct(nl); err != nil {
		return ClassLevel{}, err
	}

	var cl ClassLevel
	err := svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		pos, err := svc.position(nl.Position, func() (int, error) { return svc.repo.NextClassLevelPosition(ctx, orgID) })
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		cl, err = svc.repo.CreateClassLevel(ctx, ClassLevel{
			OrganizationID: orgID,
			Name:           nl.Name,
			Description:    nl.Description,
			Position:       pos,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		return errors.Wrap(err, "creating class level")
	})
	return cl, err
}

func (svc *Service) position(pos *int, next func() (int, error)) (int, error) {
	if pos != nil {
		return *pos, nil
	}
	n, err := next()
	return n, errors.Wrap(err, "computing next position")
}

func (svc *Service) Query(ctx context.Context, orgID string) ([]ClassLevel, error) {
	return svc.repo.QueryClassLevels(ctx, orgID)
}

// Get returns the class level with its skills.
func (svc *Service) Get(ctx context.Context, orgID, id string) (ClassLevel, error) {
	cl, err := svc.repo.GetClassLevel(ctx, orgID, id)
	if err != nil {
		return ClassLevel{}, err
	}
	if cl.Skills, err = svc.repo.QuerySkills(ctx, cl.ID); err != nil {
		return ClassLevel{}, errors.Wrap(err, "querying skills")
	}
	return cl, nil
}

func (svc *Service) Update(ctx context.Context, orgID, id string, ul UpdateClassLevel) (ClassLevel, error) {
	if err := svc.validate.Struct(ul); err != nil {
		return ClassLevel{}, err
	}
	cl, err := svc.repo.GetClassLevel(ctx, orgID, id)
	if err != nil {
		return ClassLevel{}, err
	}
	ul.apply(&cl.Name, &cl.Description, &cl.Position)
	cl.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClassLevel(ctx, cl)
}

// Delete removes a class level no lesson uses, with its skills, in one transaction.
func (svc *Service) Delete(ctx context.Context, orgID, id string) error {
	cl, err := svc.repo.GetClassLevel(ctx, orgID, id)
	if err != nil {
		return err
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := svc.repo.CountLessons(ctx, cl.ID)
		if err != nil {
			return errors.Wrap(err, "counting lessons")
		}
		if n > 0 {
			return ErrInUse
		}
		if err = svc.repo.DeleteSkillProgressByClassLevel(ctx, cl.ID); err != nil {
			return errors.Wrap(err, "deleting skill progress")
		}
		if err = svc.repo.DeleteSkillsByClassLevel(ctx, cl.ID); err != nil {
			return errors.Wrap(err, "deleting skills")
		}
		return errors.Wrap(svc.repo.DeleteClassLevel(ctx, cl.ID), "deleting class level")
	})
}

// Skills returns the skills of a class level ordered by position.
func (svc *Service) Skills(ctx context.Context, classLevelID string) ([]Skill, error) {
	return svc.repo.QuerySkills(ctx, classLevelID)
}

func (svc *Service) QuerySkills(ctx context.Context, orgID, classLevelID string) ([]Skill, error) {
	if _, err := svc.repo.GetClassLevel(ctx, orgID, classLevelID); err != nil {
		return nil, err
	}
	return svc.repo.QuerySkills(ctx, classLevelID)
}

// CreateSkill adds a skill and seeds its NOT_STARTED progress into the enrollments at this level.
func (svc *Service) CreateSkill(ctx context.Context, orgID, classLevelID string, ns NewSkill) (Skill, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Skill{}, err
	}
	cl, err := svc.repo.GetClassLevel(ctx, orgID, classLevelID)
	if err != nil {
		return Skill{}, err
	}

	var sk Skill
	err = svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		pos, err := svc.position(ns.Position, func() (int, error) { return svc.repo.NextSkillPosition(ctx, cl.ID) })
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		sk, err = svc.repo.CreateSkill(ctx, Skill{
			ClassLevelID: cl.ID,
			Name:         ns.Name,
			Description:  ns.Description,
			Position:     pos,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return errors.Wrap(err, "creating skill")
		}
		n, err := svc.repo.SeedSkillProgress(ctx, cl.ID, sk.ID, now)
		if err != nil {
			return errors.Wrap(err, "seeding skill progress")
		}
		svc.logger.Debug(fmt.Sprintf("skill %s: seeded progress into %d enrollments", sk.ID, n))
		return nil
	})
	return sk, err
}

func (svc *Service) getSkill(ctx context.Context, orgID, classLevelID, id string) (Skill, error) {
	if _, err := svc.repo.GetClassLevel(ctx, orgID, classLevelID); err != nil {
		return Skill{}, err
	}
	return svc.repo.GetSkill(ctx, classLevelID, id)
}

func (svc *Service) UpdateSkill(ctx context.Context, orgID, classLevelID, id string, us UpdateSkill) (Skill, error) {
	if err := svc.validate.Struct(us); err != nil {
		return Skill{}, err
	}
	sk, err := svc.getSkill(ctx, orgID, classLevelID, id)
	if err != nil {
		return Skill{}, err
	}
	us.apply(&sk.Name, &sk.Description, &sk.Position)
	sk.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSkill(ctx, sk)
}

// DeleteSkill removes the skill's progress rows then the skill, in one transaction.
func (svc *Service) DeleteSkill(ctx context.Context, orgID, classLevelID, id string) error {
	sk, err := svc.getSkill(ctx, orgID, classLevelID, id)
	if err != nil {
		return err
	}
	return svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := svc.repo.DeleteSkillProgressBySkill(ctx, sk.ID); err != nil {
			return errors.Wrap(err, "deleting skill progress")
		}
		return errors.Wrap(svc.repo.DeleteSkill(ctx, sk.ID), "deleting skill")
	})
}

// OrderSkills sets the skills positions following so.SkillIDs, which must be a permutation
// of the class level's skills.
func (svc *Service) OrderSkills(ctx context.Context, orgID, classLevelID string, so SkillOrder) ([]Skill, error) {
	if err := svc.validate.Struct(so); err != nil {
		return nil, err
	}
	skills, err := svc.QuerySkills(ctx, orgID, classLevelID)
	if err != nil {
		return nil, err
	}

	ids := core.UniqueStrings(so.SkillIDs)
	if len(ids) != len(so.SkillIDs) || len(ids) != len(skills) {
		return nil, core.NewValidationError(errBadOrder, core.FieldError{Field: "skill_ids", Error: errBadOrder.Error()})
	}
	for _, sk := range skills {
		if !core.ContainsString(ids, sk.ID) {
			return nil, core.NewValidationError(errBadOrder, core.FieldError{Field: "skill_ids", Error: errBadOrder.Error()})
		}
	}

	err = svc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return svc.repo.SetSkillPositions(ctx, classLevelID, ids)
	})
	if err != nil {
		return nil, errors.Wrap(err, "ordering skills")
	}
	return svc.repo.QuerySkills(ctx, classLevelID)
}
