package api

import (
	"net/http"
	"testing"

	"bugie/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberHandler_Invite(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.login("owner")
	member, memberToken := env.login("member")
	guest, _ := env.login("guest")
	ledger := env.ledger(owner)
	path := "/ledgers/" + ledger.String() + "/members"

	w := env.do(http.MethodPost, path, ownerToken, gin.H{"account_id": member.String(), "role": "member"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "member", data["role"])

	// 普通成员不能邀请
	w = env.do(http.MethodPost, path, memberToken, gin.H{"account_id": guest.String(), "role": "viewer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 重复邀请
	w = env.do(http.MethodPost, path, ownerToken, gin.H{"account_id": member.String(), "role": "viewer"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "该账号已是账本成员", decode(t, w)["message"])

	var m models.Membership
	require.NoError(t, env.db.Where("ledger_id = ? AND account_id = ?", ledger, member).First(&m).Error)
	assert.Equal(t, models.RoleMember, m.Role)
}

func TestMemberHandler_Invite_BadRequest(t *testing.T) {
	env := newTestEnv(t)
	owner, token := env.login("owner")
	ledger := env.ledger(owner)
	path := "/ledgers/" + ledger.String() + "/members"

	tests := []struct {
		name string
		body gin.H
	}{
		{"未知角色", gin.H{"account_id": owner.String(), "role": "superuser"}},
		{"缺少角色", gin.H{"account_id": owner.String()}},
		{"无效账号", gin.H{"account_id": "42", "role": "viewer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, path, token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w := env.do(http.MethodPost, "/ledgers/not-a-uuid/members", token, gin.H{"account_id": owner.String(), "role": "viewer"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_Get_NonMember(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.login("owner")
	_, strangerToken := env.login("stranger")
	ledger := env.ledger(owner)

	w := env.do(http.MethodGet, "/ledgers/"+ledger.String(), ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner", decode(t, w)["data"].(map[string]interface{})["role"])

	w = env.do(http.MethodGet, "/ledgers/"+ledger.String(), strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
