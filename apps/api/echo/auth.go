package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/myhockeyrecruiting/mhr/core"
	"github.com/myhockeyrecruiting/mhr/core/user"
)

const (
	tokenAudience     = "MHR"
	contextViewerKey  = "viewer"
	contextAccountKey = "account"
)

var (
	// appJWTConfig is the default JWT auth middleware config. Set by configureAuth.
	appJWTConfig middleware.JWTConfig

	tokenIssuer               string
	jwtExpirationDelta        = 7 * 24 * time.Hour
	jwtRefreshExpirationDelta = 30 * 24 * time.Hour
)

func configureAuth(conf *core.Config) {
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	tokenIssuer = conf.AppName
	if conf.Server.JWTExpirationDelta > 0 {
		jwtExpirationDelta = conf.Server.JWTExpirationDelta
	}
	if conf.Server.JWTRefreshExpirationDelta > 0 {
		jwtRefreshExpirationDelta = conf.Server.JWTRefreshExpirationDelta
	}
}

// optionalJWTConfig lets requests without an Authorization header through as anonymous.
func optionalJWTConfig() middleware.JWTConfig {
	conf := appJWTConfig
	conf.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return conf
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt    int64  `json:"oriat,omitempty"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	ParentProfileID string `json:"parentProfileId,omitempty"`
	CoachProfileID  string `json:"coachProfileId,omitempty"`
}

func GetUserClaims(acc user.Account, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	viewer := acc.Viewer()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    tokenIssuer,
			Subject:   acc.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:    oriat,
		Name:            viewer.Name,
		Email:           viewer.Email,
		Role:            viewer.Role,
		ParentProfileID: viewer.ParentProfileID,
		CoachProfileID:  viewer.CoachProfileID,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// viewerMiddleware loads the account of the token holder.
// When allowAnonymous is set, requests without a token get a zero Viewer.
func viewerMiddleware(svc user.Service, allowAnonymous bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				if allowAnonymous {
					ctx.Set(contextViewerKey, user.Viewer{})
					return next(ctx)
				}
				return err
			}

			acc, err := svc.GetAccount(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "getting context account")
			}
			if !acc.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(contextAccountKey, acc)
			ctx.Set(contextViewerKey, acc.Viewer())
			return next(ctx)
		}
	}
}

func getViewer(ctx echo.Context) user.Viewer {
	v, _ := ctx.Get(contextViewerKey).(user.Viewer)
	return v
}

func getContextAccount(ctx echo.Context) (user.Account, error) {
	if acc, ok := ctx.Get(contextAccountKey).(user.Account); ok {
		return acc, nil
	}
	return user.Account{}, errUnauthorized
}

func refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	acc, err := getContextAccount(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context account")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(jwtRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(GetUserClaims(acc, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
