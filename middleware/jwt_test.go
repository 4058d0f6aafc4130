package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bugie/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT() *JWT {
	return NewJWT(config.JWTConfig{
		Secret:         "test-jwt-secret-key",
		ProviderSecret: "test-provider-secret",
		Issuer:         "bugie-test",
		ExpireTime:     time.Hour,
	})
}

func TestGenerateToken(t *testing.T) {
	j := newTestJWT()
	id := uuid.New()

	token, expiresAt, err := j.GenerateToken(id)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := j.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.AccountID)
	assert.Equal(t, "bugie-test", claims.Issuer)
}

func TestParseToken(t *testing.T) {
	j := newTestJWT()

	_, err := j.ParseToken("")
	assert.Error(t, err)
	_, err = j.ParseToken("not.a.valid.jwt")
	assert.Error(t, err)
	_, err = j.ParseToken("eyJhbGciOiJmb29iIn0.xxxx.yyyy")
	assert.Error(t, err)

	// 其他密钥签发的 token
	other := NewJWT(config.JWTConfig{Secret: "another-secret", ExpireTime: time.Hour})
	token, _, err := other.GenerateToken(uuid.New())
	require.NoError(t, err)
	_, err = j.ParseToken(token)
	assert.Error(t, err)

	// 已过期
	expired := NewJWT(config.JWTConfig{Secret: "test-jwt-secret-key"})
	expired.expire = -time.Minute
	token, _, err = expired.GenerateToken(uuid.New())
	require.NoError(t, err)
	_, err = j.ParseToken(token)
	assert.Error(t, err)
}

func signProviderToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	claims := ProviderClaims{
		Email: "minji@example.com",
		Name:  "민지",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseProviderToken(t *testing.T) {
	j := newTestJWT()
	id := uuid.New()

	claims, got, err := j.ParseProviderToken(signProviderToken(t, "test-provider-secret", id.String(), time.Now().Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "minji@example.com", claims.Email)

	_, _, err = j.ParseProviderToken(signProviderToken(t, "test-provider-secret", "not-a-uuid", time.Now().Add(time.Minute)))
	assert.Error(t, err)

	// 会话密钥签发的 token 不能当作身份 token 使用
	_, _, err = j.ParseProviderToken(signProviderToken(t, "test-jwt-secret-key", id.String(), time.Now().Add(time.Minute)))
	assert.Error(t, err)
}

func TestAuth(t *testing.T) {
	j := newTestJWT()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(j.Auth())
	router.GET("/protected", func(c *gin.Context) {
		c.String(200, "id:%s", GetCurrentAccountID(c))
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "401")
	assert.Equal(t, http.StatusUnauthorized, do("Basic xyz").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer ").Code)

	id := uuid.New()
	token, _, err := j.GenerateToken(id)
	require.NoError(t, err)
	w = do("Bearer " + token)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "id:"+id.String(), w.Body.String())
}

func TestGetCurrentAccountID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uuid.Nil, GetCurrentAccountID(c))

	id := uuid.New()
	c.Set(accountIDKey, id)
	assert.Equal(t, id, GetCurrentAccountID(c))
}
