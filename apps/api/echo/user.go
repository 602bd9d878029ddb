package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

type userApi struct {
	svc  user.Service
	deps Deps
}

func registerAuthAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps Deps) {
	api := userApi{svc: deps.UserSvc, deps: deps}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/resend-code` & `/password-reset`
	ag.POST("/sign-up", api.signUp)
	ag.POST("/verify-phone", api.verifyPhone)
	ag.POST("/resend-code", api.resendCode)
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, authed...)
	ag.POST("/change-password", api.changePassword, authed...)
	ag.POST("/close-account", api.closeAccount, authed...)
}

func registerProfileAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps Deps) {
	api := userApi{svc: deps.UserSvc, deps: deps}

	pg := g.Group("", authed...)
	pg.GET("/profile", api.profile)
	pg.PUT("/profile", api.updateProfile)
	pg.GET("/notification-preferences", api.notificationPreferences)
	pg.PUT("/notification-preferences", api.updateNotificationPreferences)

	pg.GET("/blocks", api.blocks)
	pg.POST("/blocks", api.block)
	pg.DELETE("/blocks/:id", api.unblock)
}

// Handlers

func (api *userApi) signUp(ctx echo.Context) error {
	var data user.SignUp
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	res, err := api.svc.SignUp(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *userApi) verifyPhone(ctx echo.Context) error {
	var data VerifyPhoneRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	acc, err := api.svc.VerifyPhone(ctx.Request().Context(), data.Email, data.Code)
	if err != nil {
		return errors.Wrap(err, "verifying phone")
	}
	return api.loginResponse(ctx, acc)
}

func (api *userApi) resendCode(ctx echo.Context) error {
	var data EmailRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	if err := api.svc.ResendCode(ctx.Request().Context(), data.Email); err != nil {
		return errors.Wrap(err, "resending verification code")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Verification code sent."})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	acc, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.loginResponse(ctx, acc)
}

func (api *userApi) loginResponse(ctx echo.Context, acc user.Account) error {
	usr, err := api.svc.SetLastLogin(ctx.Request().Context(), acc.User)
	if err != nil {
		return errors.Wrap(err, "setting lastLogin")
	}
	acc.User = usr

	token, err := GenerateToken(GetUserClaims(acc))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Account: &acc})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data EmailRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && !core.IsNotFound(err) {
		// do not return errors to attackers
		api.deps.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) changePassword(ctx echo.Context) error {
	var data user.ChangePassword
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	if err := api.svc.ChangePassword(ctx.Request().Context(), getViewer(ctx), data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password updated."})
}

func (api *userApi) closeAccount(ctx echo.Context) error {
	if err := api.svc.CloseAccount(ctx.Request().Context(), getViewer(ctx)); err != nil {
		return errors.Wrap(err, "closing account")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your account has been closed."})
}

func (api *userApi) profile(ctx echo.Context) error {
	acc, err := getContextAccount(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	var data user.UpdateProfile
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	acc, err := api.svc.UpdateProfile(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, acc)
}

func (api *userApi) notificationPreferences(ctx echo.Context) error {
	p, err := api.svc.GetParentProfile(ctx.Request().Context(), user.ProfileFilter{UserID: getViewer(ctx).UserID})
	if err != nil {
		return errors.Wrap(err, "getting parent profile")
	}
	return ctx.JSON(http.StatusOK, notificationPrefsResponse(p))
}

func (api *userApi) updateNotificationPreferences(ctx echo.Context) error {
	var data user.NotificationPreferences
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotificationPreferences")
	}

	p, err := api.svc.UpdateNotificationPreferences(ctx.Request().Context(), getViewer(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating notification preferences")
	}
	return ctx.JSON(http.StatusOK, notificationPrefsResponse(p))
}

func notificationPrefsResponse(p user.ParentProfile) echo.Map {
	return echo.Map{
		"eventReminderSmsEnabled":   p.EventReminderSMS,
		"emailNotificationsEnabled": p.EmailNotifications,
	}
}

func (api *userApi) blocks(ctx echo.Context) error {
	blocks, err := api.svc.Blocks(ctx.Request().Context(), getViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "querying blocks")
	}
	if blocks == nil {
		blocks = []user.Block{}
	}
	return ctx.JSON(http.StatusOK, blocks)
}

func (api *userApi) block(ctx echo.Context) error {
	var data BlockRequest
	if err := bindAndValidate(ctx, &data, api.deps); err != nil {
		return err
	}

	b, created, err := api.svc.Block(ctx.Request().Context(), getViewer(ctx), data.UserID)
	if err != nil {
		return errors.Wrap(err, "blocking user")
	}
	if !created {
		return ctx.JSON(http.StatusOK, echo.Map{"block": b, "message": "User already blocked"})
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"block": b})
}

func (api *userApi) unblock(ctx echo.Context) error {
	if err := api.svc.Unblock(ctx.Request().Context(), getViewer(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "unblocking user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string        `json:"token"`
		Account *user.Account `json:"user,omitempty"`
	}

	VerifyPhoneRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	BlockRequest struct {
		UserID string `json:"userId" validate:"required"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (vr *VerifyPhoneRequest) Validate(validate *validator.Validate) error {
	vr.Email = core.CleanString(vr.Email, true /* lower */)
	vr.Code = core.CleanString(vr.Code)
	return validate.Struct(vr)
}

func (er *EmailRequest) Validate(validate *validator.Validate) error {
	er.Email = core.CleanString(er.Email, true /* lower */)
	return validate.Struct(er)
}

func (br BlockRequest) Validate(validate *validator.Validate) error { return validate.Struct(br) }
