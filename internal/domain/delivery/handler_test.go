package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mednow/mednow/internal/platform/auth"
)

func testContext(t *testing.T, method, target, body string, userID uuid.UUID, roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID.String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerRegister(t *testing.T) {
	presID := uuid.New()
	repo := &mockRepo{}
	h := NewHandler(NewService(repo, &mockDirectory{known: map[uuid.UUID]bool{presID: true}}, &mockPublisher{}))
	pharmacistID := uuid.New()

	body := `{"prescription_id":"` + presID.String() + `"}`
	c, rec := testContext(t, http.MethodPost, "/api/v1/deliveries", body, pharmacistID, auth.RolePharmacist)

	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var got Delivery
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.PharmacistID != pharmacistID {
		t.Errorf("pharmacist_id = %s, want the authenticated pharmacist", got.PharmacistID)
	}
}

func TestHandlerRegister_UnknownPrescriptionIs404(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{}, &mockDirectory{known: map[uuid.UUID]bool{}}, &mockPublisher{}))

	body := `{"prescription_id":"` + uuid.NewString() + `"}`
	c, _ := testContext(t, http.MethodPost, "/api/v1/deliveries", body, uuid.New(), auth.RolePharmacist)

	err := h.Register(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestHandlerList_PharmacistDefaultsToOwn(t *testing.T) {
	presID := uuid.New()
	repo := &mockRepo{}
	h := NewHandler(NewService(repo, &mockDirectory{known: map[uuid.UUID]bool{presID: true}}, &mockPublisher{}))
	pharmacistID := uuid.New()

	mine := &Delivery{PrescriptionID: presID, PharmacistID: pharmacistID}
	other := &Delivery{PrescriptionID: presID, PharmacistID: uuid.New()}
	for _, d := range []*Delivery{mine, other} {
		if err := repo.Create(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}

	c, rec := testContext(t, http.MethodGet, "/api/v1/deliveries", "", pharmacistID, auth.RolePharmacist)
	if err := h.List(c); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("own-deliveries default not applied: %s", rec.Body.String())
	}
}
