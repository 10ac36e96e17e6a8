package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/mmdatafocus/maintcost_backend/models"
)

// JwtCustomClaim carries the caller and their assignments.
type JwtCustomClaim struct {
	ID        int                `json:"id"`
	Username  string             `json:"username"`
	Role      string             `json:"role"`
	Branch    string             `json:"branch"`
	CostCodes models.Restriction `json:"assignedCostCodes"`
	Groups    models.Restriction `json:"assignedGroups"`
	jwt.StandardClaims
}

func (c *JwtCustomClaim) CurrentUser() models.CurrentUser {
	return models.CurrentUser{
		ID:        c.ID,
		Username:  c.Username,
		Role:      models.UserRole(strings.ToUpper(c.Role)),
		Branch:    models.BranchCode(c.Branch),
		CostCodes: c.CostCodes,
		Groups:    c.Groups,
	}
}

func getJwtSecret() ([]byte, error) {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return nil, ErrorMissingSecret
	}
	return []byte(secret), nil
}

// JwtGenerate signs a token for user. The API only validates tokens; this is for tooling and tests.
func JwtGenerate(user models.CurrentUser, lifespan time.Duration) (string, error) {
	secret, err := getJwtSecret()
	if err != nil {
		return "", err
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		Branch:    string(user.Branch),
		CostCodes: user.CostCodes,
		Groups:    user.Groups,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(lifespan).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})
	return t.SignedString(secret)
}

func JwtValidate(token string) (*jwt.Token, error) {
	secret, err := getJwtSecret()
	if err != nil {
		return nil, err
	}
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return secret, nil
	})
}

// UserFromToken validates token and returns the user it carries.
func UserFromToken(token string) (models.CurrentUser, error) {
	parsed, err := JwtValidate(token)
	if err != nil {
		return models.CurrentUser{}, err
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return models.CurrentUser{}, ErrorUnauthorized
	}
	return claims.CurrentUser(), nil
}
