package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/directory"
	"github.com/myhockeyrecruiting/mhr/core/lookup"
	"github.com/myhockeyrecruiting/mhr/core/plan"
	"github.com/myhockeyrecruiting/mhr/core/review"
	"github.com/myhockeyrecruiting/mhr/core/support"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

type adminApi struct {
	deps Deps
}

func registerAdminAPI(g *echo.Group, admin []echo.MiddlewareFunc, deps Deps) {
	api := adminApi{deps: deps}

	ag := g.Group("/admin", admin...)

	ag.GET("/users", api.queryUsers)
	ag.PATCH("/users/:id/active", api.setUserActive)
	ag.GET("/users/blocked", api.blockedEmails)
	ag.POST("/users/block", api.blockEmail)
	ag.POST("/users/unblock", api.unblockEmail)
	ag.POST("/users/set-phone", api.setPhone)
	ag.POST("/users/verify-phone", api.verifyPhone)
	ag.POST("/users/reset-password", api.resetPassword)
	ag.POST("/grant-plan", api.grantPlan)

	ag.GET("/disputes", api.listDisputes)
	ag.POST("/disputes/:kind/:id/reply", api.replyToDispute)
	ag.PATCH("/disputes/:kind/:id", api.setDisputeStatus)

	ag.GET("/facility-submissions", api.listFacilities)
	ag.POST("/facility-submissions/bulk", api.importFacilities)
	ag.PATCH("/facility-submissions/bulk", api.bulkSetFacilityStatus)
	ag.PATCH("/facility-submissions/:id", api.setFacilityStatus)

	ag.GET("/schools", api.listSchools)
	ag.PATCH("/schools/:id", api.setSchoolStatus)

	ag.GET("/lookups", api.listLookups)
	ag.POST("/lookups", api.createLookup)
	ag.POST("/lookups/bulk", api.bulkCreateLookups)
	ag.PUT("/lookups/:id", api.updateLookup)
	ag.DELETE("/lookups/:id", api.deleteLookup)

	ag.GET("/contact-messages", api.listContactMessages)
	ag.GET("/contact-messages/:id", api.retrieveContactMessage)
	ag.POST("/contact-messages/:id/reply", api.replyToContactMessage)
	ag.PATCH("/contact-messages/:id", api.setContactMessageStatus)
}

// Users

func (api *adminApi) queryUsers(ctx echo.Context) error {
	filter := user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Role:   ctx.QueryParam("role"),
	}
	if ctx.QueryParam("isActive") != "" {
		active := queryBool(ctx, "isActive")
		filter.IsActive = &active
	}
	var ord Ordering
	ord.Bind(ctx, "name", "email", "role", "created_at", "last_login")

	users, err := api.deps.UserSvc.Query(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}

	total := len(users)
	page := core.Pagination{Limit: queryInt(ctx, "limit", 100), Offset: queryInt(ctx, "offset", 0)}
	page.Clean(100, 10000)
	users = paginate(users, page)
	return ctx.JSON(http.StatusOK, echo.Map{"users": users, "total": total})
}

func (api *adminApi) setUserActive(ctx echo.Context) error {
	var data struct {
		IsActive bool `json:"isActive"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding request")
	}

	usr, err := api.deps.UserSvc.SetActive(ctx.Request().Context(), ctx.Param("id"), data.IsActive)
	if err != nil {
		return errors.Wrap(err, "setting user active")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) blockedEmails(ctx echo.Context) error {
	blocked, err := api.deps.UserSvc.ListBlockedEmails(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying blocked emails")
	}
	emails := make([]string, 0, len(blocked))
	for _, be := range blocked {
		emails = append(emails, be.Email)
	}
	if blocked == nil {
		blocked = []user.BlockedEmail{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"emails": emails, "blocked": blocked})
}

func (api *adminApi) blockEmail(ctx echo.Context) error {
	var data AdminUserRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	be, err := api.deps.UserSvc.BlockEmail(ctx.Request().Context(), data.Email, data.Reason, getViewer(ctx).UserID)
	if err != nil {
		return errors.Wrap(err, "blocking email")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "blocked": be.Email})
}

func (api *adminApi) unblockEmail(ctx echo.Context) error {
	var data AdminUserRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	if err := api.deps.UserSvc.UnblockEmail(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "unblocking email")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true, "unblocked": data.Email})
}

// userByEmail resolves the target account of an admin user action.
func (api *adminApi) userByEmail(ctx echo.Context, email string) (user.User, error) {
	usr, err := api.deps.UserSvc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, core.NewNotFoundError("User not found")
		}
		return user.User{}, errors.Wrap(err, "getting user by email")
	}
	return usr, nil
}

func (api *adminApi) setPhone(ctx echo.Context) error {
	var data AdminUserRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	usr, err := api.userByEmail(ctx, data.Email)
	if err != nil {
		return err
	}
	if _, err = api.deps.UserSvc.SetPhone(ctx.Request().Context(), usr.ID, data.Phone); err != nil {
		return errors.Wrap(err, "setting phone")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"ok":      true,
		"message": "Phone updated for " + usr.Email + ". They can now receive verification codes.",
	})
}

func (api *adminApi) verifyPhone(ctx echo.Context) error {
	var data AdminUserRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	usr, err := api.userByEmail(ctx, data.Email)
	if err != nil {
		return err
	}
	if _, err = api.deps.UserSvc.AdminVerifyPhone(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "verifying phone")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"ok":      true,
		"message": "Phone verified for " + usr.Email + ". They can now sign in.",
	})
}

func (api *adminApi) resetPassword(ctx echo.Context) error {
	var data AdminUserRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}
	if len(data.Password) < 8 {
		return core.NewValidationError(
			errors.New("Invalid password"),
			core.FieldError{Field: "password", Error: "password must be at least 8 characters long"},
		)
	}

	usr, err := api.userByEmail(ctx, data.Email)
	if err != nil {
		return err
	}
	if _, err = api.deps.UserSvc.AdminResetPassword(ctx.Request().Context(), usr.ID, data.Password); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"ok":      true,
		"message": "Password reset for " + usr.Email + ".",
	})
}

func (api *adminApi) grantPlan(ctx echo.Context) error {
	var data GrantPlanRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	p, err := api.deps.UserSvc.GrantPlan(ctx.Request().Context(), data.Email, plan.ID(data.PlanID))
	if err != nil {
		return errors.Wrap(err, "granting plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

// Disputes

func (api *adminApi) listDisputes(ctx echo.Context) error {
	var filter review.DisputeFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to DisputeFilter")
	}

	disputes, err := api.deps.ReviewSvc.ListDisputes(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying disputes")
	}
	if disputes == nil {
		disputes = []review.Dispute{}
	}
	return ctx.JSON(http.StatusOK, disputes)
}

func (api *adminApi) replyToDispute(ctx echo.Context) error {
	var data review.NewMessage
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	msg, err := api.deps.ReviewSvc.ReplyToDispute(ctx.Request().Context(), getViewer(ctx), ctx.Param("kind"), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "replying to dispute")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *adminApi) setDisputeStatus(ctx echo.Context) error {
	var data review.DisputeStatus
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	d, err := api.deps.ReviewSvc.SetDisputeStatus(ctx.Request().Context(), ctx.Param("kind"), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting dispute status")
	}
	return ctx.JSON(http.StatusOK, d)
}

// Facilities & schools

func (api *adminApi) listFacilities(ctx echo.Context) error {
	fs, err := api.deps.DirectorySvc.ListFacilities(ctx.Request().Context(), ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying facility submissions")
	}
	if fs == nil {
		fs = []directory.Facility{}
	}
	return ctx.JSON(http.StatusOK, fs)
}

func (api *adminApi) setFacilityStatus(ctx echo.Context) error {
	var data directory.SetStatus
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	f, err := api.deps.DirectorySvc.SetFacilityStatus(ctx.Request().Context(), getViewer(ctx).UserID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting facility status")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *adminApi) bulkSetFacilityStatus(ctx echo.Context) error {
	var data BulkStatusRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	res := api.deps.DirectorySvc.BulkSetFacilityStatus(
		ctx.Request().Context(), getViewer(ctx).UserID, data.IDs, directory.SetStatus{Status: data.Status},
	)
	return ctx.JSON(http.StatusOK, res)
}

func (api *adminApi) importFacilities(ctx echo.Context) error {
	var data struct {
		Rows []directory.NewFacility `json:"rows"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding request")
	}
	if len(data.Rows) == 0 {
		return core.NewBadRequestError("No rows to import")
	}

	res := api.deps.DirectorySvc.BulkImportFacilities(ctx.Request().Context(), api.deps.Validate, getViewer(ctx).UserID, data.Rows)
	return ctx.JSON(http.StatusOK, res)
}

func (api *adminApi) listSchools(ctx echo.Context) error {
	schools, err := api.deps.DirectorySvc.ListSchools(ctx.Request().Context(), ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying school submissions")
	}
	if schools == nil {
		schools = []directory.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *adminApi) setSchoolStatus(ctx echo.Context) error {
	var data directory.SetStatus
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	s, err := api.deps.DirectorySvc.SetSchoolStatus(ctx.Request().Context(), getViewer(ctx).UserID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting school status")
	}
	return ctx.JSON(http.StatusOK, s)
}

// Lookups

func (api *adminApi) listLookups(ctx echo.Context) error {
	values, err := api.deps.LookupSvc.AdminList(ctx.Request().Context(), ctx.QueryParam("category"))
	if err != nil {
		return errors.Wrap(err, "querying lookups")
	}
	if values == nil {
		values = []lookup.Value{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"lookups": values})
}

func (api *adminApi) createLookup(ctx echo.Context) error {
	var data lookup.NewValue
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	v, err := api.deps.LookupSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lookup")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *adminApi) bulkCreateLookups(ctx echo.Context) error {
	var data struct {
		Rows []lookup.NewValue `json:"rows"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding request")
	}
	if len(data.Rows) == 0 {
		return core.NewBadRequestError("No rows to import")
	}

	return ctx.JSON(http.StatusOK, api.deps.LookupSvc.BulkCreate(ctx.Request().Context(), api.deps.Validate, data.Rows))
}

func (api *adminApi) updateLookup(ctx echo.Context) error {
	var data lookup.UpdateValue
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	v, err := api.deps.LookupSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lookup")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *adminApi) deleteLookup(ctx echo.Context) error {
	if err := api.deps.LookupSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lookup")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Contact messages

func (api *adminApi) listContactMessages(ctx echo.Context) error {
	filter := support.QueryFilter{
		Status: ctx.QueryParam("status"),
		Pagination: core.Pagination{
			Limit:  queryInt(ctx, "limit", 0),
			Offset: queryInt(ctx, "offset", 0),
		},
	}

	msgs, total, err := api.deps.SupportSvc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying contact messages")
	}
	if msgs == nil {
		msgs = []support.Message{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"messages": msgs, "total": total})
}

func (api *adminApi) retrieveContactMessage(ctx echo.Context) error {
	m, err := api.deps.SupportSvc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting contact message")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *adminApi) replyToContactMessage(ctx echo.Context) error {
	var data support.NewReply
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	r, err := api.deps.SupportSvc.Reply(ctx.Request().Context(), getViewer(ctx).UserID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "replying to contact message")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *adminApi) setContactMessageStatus(ctx echo.Context) error {
	var data support.SetStatus
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	m, err := api.deps.SupportSvc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting contact message status")
	}
	return ctx.JSON(http.StatusOK, m)
}

func paginate(users []user.User, page core.Pagination) []user.User {
	if page.Offset >= len(users) {
		return []user.User{}
	}
	end := page.Offset + page.Limit
	if end > len(users) {
		end = len(users)
	}
	return users[page.Offset:end]
}

type (
	// AdminUserRequest targets an account by email.
	AdminUserRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Reason   string `json:"reason"`
	}

	GrantPlanRequest struct {
		Email  string `json:"email" validate:"required,email"`
		PlanID string `json:"planId" validate:"required"`
	}

	BulkStatusRequest struct {
		IDs    []string `json:"ids" validate:"required,min=1"`
		Status string   `json:"status" validate:"required,oneof=approved rejected removed"`
	}
)

func (r *AdminUserRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Phone = core.CleanString(r.Phone)
	r.Reason = core.CleanString(r.Reason)
	return validate.Struct(r)
}

func (r *GrantPlanRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.PlanID = core.CleanString(r.PlanID)
	return validate.Struct(r)
}

func (r BulkStatusRequest) Validate(validate *validator.Validate) error { return validate.Struct(r) }
