package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do("GET", "/api/admin/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_UserCRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.do("POST", "/api/admin/users", map[string]string{"name": "Alice", "group_type": "staff"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user models.User
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &user))
	assert.True(t, user.Active)

	w = env.do("PUT", fmt.Sprintf("/api/admin/users/%d", user.ID), map[string]interface{}{"active": false}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do("GET", "/api/admin/users?active=false", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var list services.UserListResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	assert.Equal(t, int64(1), list.Total)

	w = env.do("DELETE", fmt.Sprintf("/api/admin/users/%d", user.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do("DELETE", fmt.Sprintf("/api/admin/users/%d", user.ID), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do("DELETE", "/api/admin/users/abc", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_GroupConflict(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.do("POST", "/api/admin/groups", map[string]string{"name": "staff", "display_name": "Staff again"}, token)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestAdmin_GroupDeactivateHidesFromKiosk(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	var group models.Group
	require.NoError(t, env.db.Where("name = ?", "contractor").First(&group).Error)

	w := env.do("POST", fmt.Sprintf("/api/admin/groups/%d/deactivate", group.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do("GET", "/api/kiosk/groups", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var groups []models.Group
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &groups))
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.NotEqual(t, "contractor", g.Name)
	}

	w = env.do("POST", "/api/admin/groups/9999/deactivate", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_SettingsUpdate(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.do("PUT", "/api/admin/settings", map[string]string{"lunch_deadline": "14:00"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var settings models.SystemSettings
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &settings))
	assert.Equal(t, "14:00", settings.LunchDeadline)

	w = env.do("PUT", "/api/admin/settings", map[string]string{"lunch_deadline": "25:99"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_ReportsAndExport(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	require.NoError(t, env.db.Create(&[]models.MealRecord{
		{UserID: uintPtr(1), UserName: "Alice", GroupType: "staff", MealType: "lunch", MealDate: "2024-03-04", MealTime: "12:00:00"},
		{UserName: "Guest", GroupType: "visitor", MealType: "lunch", MealDate: "2024-03-04", MealTime: "12:10:00"},
	}).Error)

	w := env.do("GET", "/api/admin/reports/summary?start_date=2024-03-04&end_date=2024-03-04", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary services.ReportSummary
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &summary))
	assert.Equal(t, int64(2), summary.Counts.Lunch)
	assert.Equal(t, int64(1), summary.Counts.Visitors)

	w = env.do("GET", "/api/admin/reports/summary?start_date=2024-03-05&end_date=2024-03-04", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("GET", "/api/admin/reports/records/export?start_date=2024-03-01&end_date=2024-03-31", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(w.Header().Get("Content-Disposition"), "meal-records_2024-03-01_2024-03-31.xlsx"))
	assert.NotZero(t, w.Body.Len())

	w = env.do("GET", "/api/admin/meal-records?visitor=true", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var records services.MealRecordListResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &records))
	assert.Equal(t, int64(1), records.Total)
}

func uintPtr(v uint) *uint { return &v }
