package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/obrastock/obrastock/internal/auth"
	"github.com/obrastock/obrastock/internal/db"
	"github.com/obrastock/obrastock/internal/model"
	"github.com/obrastock/obrastock/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, store.CreateUserParams{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	})

	// Get token.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password123"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}

	return server, loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func createTool(t *testing.T, server *httptest.Server, token, name, code string, quantity int) model.Tool {
	t.Helper()
	req, _ := authRequest("POST", server.URL+"/api/tools", token, map[string]any{
		"name":           name,
		"code":           code,
		"category":       "hand tools",
		"total_quantity": quantity,
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("create tool request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating tool, got %d", resp.StatusCode)
	}
	var tool model.Tool
	json.NewDecoder(resp.Body).Decode(&tool)
	return tool
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The revoked token no longer works.
	req, _ = authRequest("GET", server.URL+"/api/tools", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestToolsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	tool := createTool(t, server, token, "Hammer", "HAM-001", 5)
	if tool.AvailableQuantity != 5 {
		t.Errorf("expected available 5, got %d", tool.AvailableQuantity)
	}

	// Duplicate code conflicts.
	req, _ := authRequest("POST", server.URL+"/api/tools", token, map[string]any{
		"name": "Other", "code": "HAM-001", "category": "hand tools", "total_quantity": 1,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate code, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List tools.
	req, _ = authRequest("GET", server.URL+"/api/tools", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var tools []model.ToolWithLoanInfo
	json.NewDecoder(resp.Body).Decode(&tools)
	resp.Body.Close()
	if len(tools) != 1 {
		t.Errorf("expected 1 tool, got %d", len(tools))
	}

	// Look up by label code.
	req, _ = authRequest("GET", server.URL+"/api/tools/code/HAM-001", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for code lookup, got %d", resp.StatusCode)
	}
	var byCode model.Tool
	json.NewDecoder(resp.Body).Decode(&byCode)
	resp.Body.Close()
	if byCode.ID != tool.ID {
		t.Errorf("expected code lookup to find tool %d, got %d", tool.ID, byCode.ID)
	}

	// Write off one damaged hammer.
	req, _ = authRequest("POST", fmt.Sprintf("%s/api/tools/%d/adjust", server.URL, tool.ID), token, map[string]any{
		"quantity_change": -1,
		"reason":          "handle cracked",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for stock adjustment, got %d", resp.StatusCode)
	}
	var adjusted model.Tool
	json.NewDecoder(resp.Body).Decode(&adjusted)
	resp.Body.Close()
	if adjusted.TotalQuantity != 4 || adjusted.AvailableQuantity != 4 {
		t.Errorf("expected 4/4 after write-off, got %d/%d", adjusted.TotalQuantity, adjusted.AvailableQuantity)
	}

	// Patch metadata.
	req, _ = authRequest("PATCH", fmt.Sprintf("%s/api/tools/%d", server.URL, tool.ID), token, map[string]any{
		"name": "Sledgehammer",
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for patch, got %d", resp.StatusCode)
	}
	var updated model.Tool
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if updated.Name != "Sledgehammer" {
		t.Errorf("expected renamed tool, got %q", updated.Name)
	}

	// Delete.
	req, _ = authRequest("DELETE", fmt.Sprintf("%s/api/tools/%d", server.URL, tool.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown tool is a 404.
	req, _ = authRequest("GET", server.URL+"/api/tools/999", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown tool, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoansAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	tool := createTool(t, server, token, "Drill", "DRL-001", 5)

	// Create a loan for 3.
	req, _ := authRequest("POST", server.URL+"/api/loans", token, map[string]any{
		"tool_id":              tool.ID,
		"borrower_name":        "Alice",
		"quantity":             3,
		"expected_return_date": time.Now().Add(48 * time.Hour),
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating loan, got %d", resp.StatusCode)
	}
	var loan model.Loan
	json.NewDecoder(resp.Body).Decode(&loan)
	resp.Body.Close()
	if loan.Status != model.LoanStatusActive {
		t.Errorf("expected active loan, got %q", loan.Status)
	}

	// Overcommitting the remaining stock is rejected with 422.
	req, _ = authRequest("POST", server.URL+"/api/loans", token, map[string]any{
		"tool_id":              tool.ID,
		"borrower_name":        "Bob",
		"quantity":             3,
		"expected_return_date": time.Now().Add(48 * time.Hour),
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for insufficient stock, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Return the loan.
	req, _ = authRequest("PATCH", fmt.Sprintf("%s/api/loans/%d/return", server.URL, loan.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for return, got %d", resp.StatusCode)
	}
	var returned model.Loan
	json.NewDecoder(resp.Body).Decode(&returned)
	resp.Body.Close()
	if returned.Status != model.LoanStatusReturned {
		t.Errorf("expected returned loan, got %q", returned.Status)
	}

	// A second return is an invalid state, 409.
	req, _ = authRequest("PATCH", fmt.Sprintf("%s/api/loans/%d/return", server.URL, loan.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for double return, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Loans against missing tools are a 404.
	req, _ = authRequest("POST", server.URL+"/api/loans", token, map[string]any{
		"tool_id":              999,
		"borrower_name":        "Carol",
		"expected_return_date": time.Now().Add(24 * time.Hour),
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown tool, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDashboardStatsEndpoint(t *testing.T) {
	server, token := setupTestServer(t)

	tool := createTool(t, server, token, "Hammer", "HAM-001", 5)
	createTool(t, server, token, "Drill", "DRL-001", 4)

	req, _ := authRequest("POST", server.URL+"/api/loans", token, map[string]any{
		"tool_id":              tool.ID,
		"borrower_name":        "Alice",
		"quantity":             3,
		"expected_return_date": time.Now().Add(48 * time.Hour),
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating loan, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/dashboard/stats", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats store.DashboardStats
	json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()

	if stats.TotalTools != 9 {
		t.Errorf("expected total tools 9, got %d", stats.TotalTools)
	}
	if stats.LentTools != 3 {
		t.Errorf("expected lent tools 3, got %d", stats.LentTools)
	}
	if stats.LowStockCount != 1 {
		t.Errorf("expected low stock count 1, got %d", stats.LowStockCount)
	}
}

func TestMovementsEndpoint(t *testing.T) {
	server, token := setupTestServer(t)

	tool := createTool(t, server, token, "Saw", "SAW-001", 3)

	req, _ := authRequest("POST", server.URL+"/api/loans", token, map[string]any{
		"tool_id":              tool.ID,
		"borrower_name":        "Alice",
		"quantity":             1,
		"expected_return_date": time.Now().Add(24 * time.Hour),
	})
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/inventory/movements", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var movements []model.Movement
	json.NewDecoder(resp.Body).Decode(&movements)
	resp.Body.Close()

	if len(movements) != 2 {
		t.Fatalf("expected 2 movements (entry + loan), got %d", len(movements))
	}
	if movements[0].Type != model.MovementEntry || movements[0].Quantity != 3 {
		t.Errorf("expected entry +3 first, got %s %d", movements[0].Type, movements[0].Quantity)
	}
	if movements[1].Type != model.MovementLoan || movements[1].Quantity != -1 {
		t.Errorf("expected loan -1 second, got %s %d", movements[1].Type, movements[1].Quantity)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, _ := http.Get(server.URL + "/api/tools")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create an operator.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user, _ := store.CreateUser(ctx, database, store.CreateUserParams{
		Username:     "op1",
		Email:        "op1@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleOperator,
	})

	operatorToken, _ := auth.GenerateToken(testJWTSecret, user.ID, "op1", model.RoleOperator, "")

	// Operators can register tools.
	req, _ := authRequest("POST", server.URL+"/api/tools", operatorToken, map[string]any{
		"name": "Hammer", "code": "HAM-001", "category": "hand tools", "total_quantity": 1,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 for operator creating tool, got %d", resp.StatusCode)
	}
	var tool model.Tool
	json.NewDecoder(resp.Body).Decode(&tool)
	resp.Body.Close()

	// Operators cannot delete tools (admin only).
	req, _ = authRequest("DELETE", fmt.Sprintf("%s/api/tools/%d", server.URL, tool.ID), operatorToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for operator deleting tool, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Operators cannot access user management.
	req, _ = authRequest("GET", server.URL+"/api/users", operatorToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for operator accessing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWorksiteScopedListing(t *testing.T) {
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	north := "north site"
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user, _ := store.CreateUser(ctx, database, store.CreateUserParams{
		Username:     "north-op",
		Email:        "north@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleOperator,
		Worksite:     &north,
	})
	northToken, _ := auth.GenerateToken(testJWTSecret, user.ID, "north-op", model.RoleOperator, north)

	south := "south site"
	southDrill, _ := store.CreateTool(ctx, database, store.CreateToolParams{
		Name: "South Drill", Code: "DRL-S", Category: "power tools", TotalQuantity: 1, OriginWorksite: &south,
	})
	store.CreateTool(ctx, database, store.CreateToolParams{
		Name: "Shared Hammer", Code: "HAM-X", Category: "hand tools", TotalQuantity: 1,
	})

	req, _ := authRequest("GET", server.URL+"/api/tools", northToken, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var tools []model.ToolWithLoanInfo
	json.NewDecoder(resp.Body).Decode(&tools)
	resp.Body.Close()

	// Only the shared-pool hammer is in scope for the north operator.
	if len(tools) != 1 || tools[0].Code != "HAM-X" {
		t.Errorf("expected only the shared tool in scope, got %v", tools)
	}

	// Out-of-scope tools are not readable directly either.
	req, _ = authRequest("GET", fmt.Sprintf("%s/api/tools/%d", server.URL, southDrill.ID), northToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for out-of-scope tool, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUsersAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	// Create a manager.
	req, _ := authRequest("POST", server.URL+"/api/users", token, map[string]any{
		"username": "manager1",
		"email":    "manager1@example.com",
		"password": "password123",
		"role":     model.RoleManager,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating user, got %d", resp.StatusCode)
	}
	var user model.User
	json.NewDecoder(resp.Body).Decode(&user)
	resp.Body.Close()
	if user.Role != model.RoleManager {
		t.Errorf("expected manager role, got %q", user.Role)
	}

	// Weak passwords are rejected.
	req, _ = authRequest("POST", server.URL+"/api/users", token, map[string]any{
		"username": "weak",
		"email":    "weak@example.com",
		"password": "short",
		"role":     model.RoleOperator,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for weak password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Demote to operator and deactivate.
	req, _ = authRequest("PUT", fmt.Sprintf("%s/api/users/%d", server.URL, user.ID), token, map[string]any{
		"role":      model.RoleOperator,
		"is_active": false,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 updating user, got %d", resp.StatusCode)
	}
	var updated model.User
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if updated.Role != model.RoleOperator || updated.IsActive {
		t.Errorf("expected deactivated operator, got %+v", updated)
	}

	// Deactivated accounts cannot log in.
	body, _ := json.Marshal(map[string]string{"username": "manager1", "password": "password123"})
	loginResp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if loginResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for deactivated user login, got %d", loginResp.StatusCode)
	}
	loginResp.Body.Close()

	// Delete the account.
	req, _ = authRequest("DELETE", fmt.Sprintf("%s/api/users/%d", server.URL, user.ID), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 deleting user, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
