package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bugie/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accountIDKey = "accountID"

// Claims 会话 token 声明
type Claims struct {
	AccountID uuid.UUID `json:"account_id"`
	jwt.RegisteredClaims
}

// ProviderClaims 认证服务商签发的身份 token，sub 为账号 UUID
type ProviderClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// JWT 会话 token 的签发与校验
type JWT struct {
	secret         []byte
	providerSecret []byte
	issuer         string
	expire         time.Duration
}

// NewJWT 创建 JWT 组件
func NewJWT(cfg config.JWTConfig) *JWT {
	expire := cfg.ExpireTime
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	return &JWT{
		secret:         []byte(cfg.Secret),
		providerSecret: []byte(cfg.ProviderSecret),
		issuer:         cfg.Issuer,
		expire:         expire,
	}
}

// GenerateToken 签发会话 token
func (j *JWT) GenerateToken(accountID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.expire)
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	return token, expiresAt, err
}

// ParseToken 解析会话 token
func (j *JWT) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenString, claims, j.secret); err != nil {
		return nil, err
	}
	if claims.AccountID == uuid.Nil {
		return nil, errors.New("token 缺少账号")
	}
	return claims, nil
}

// ParseProviderToken 校验认证服务商的身份 token
func (j *JWT) ParseProviderToken(tokenString string) (*ProviderClaims, uuid.UUID, error) {
	claims := &ProviderClaims{}
	if err := parse(tokenString, claims, j.providerSecret); err != nil {
		return nil, uuid.Nil, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("无效的用户标识: %w", err)
	}
	return claims, id, nil
}

func parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return errors.New("token 为空")
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token 无效")
	}
	return nil
}

// Auth 会话认证中间件
func (j *JWT) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "请先登录")
			return
		}
		claims, err := j.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthorized(c, "登录已过期，请重新登录")
			return
		}
		c.Set(accountIDKey, claims.AccountID)
		c.Next()
	}
}

// GetCurrentAccountID 当前登录账号，未登录返回 uuid.Nil
func GetCurrentAccountID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(accountIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
