package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/schedule"
)

type fakeDoctorService struct {
	byID      map[uuid.UUID]*doctors.Doctor
	created   []doctors.CreateInput
	err       error
	updateErr error
}

func newFakeDoctorService(docs ...*doctors.Doctor) *fakeDoctorService {
	s := &fakeDoctorService{byID: make(map[uuid.UUID]*doctors.Doctor)}
	for _, d := range docs {
		s.byID[d.ID] = d
	}
	return s
}

func (s *fakeDoctorService) Create(_ context.Context, input doctors.CreateInput) (*doctors.Doctor, error) {
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, doctors.ErrInvalidName
	}
	s.created = append(s.created, input)
	d := &doctors.Doctor{ID: uuid.New(), Name: input.Name, PhoneNumber: input.PhoneNumber}
	s.byID[d.ID] = d
	return d, nil
}

func (s *fakeDoctorService) GetByID(_ context.Context, id uuid.UUID) (*doctors.Doctor, error) {
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.byID[id]
	if !ok {
		return nil, doctors.ErrNotFound
	}
	return d, nil
}

func (s *fakeDoctorService) List(_ context.Context) ([]doctors.Doctor, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []doctors.Doctor
	for _, d := range s.byID {
		out = append(out, *d)
	}
	return out, nil
}

func (s *fakeDoctorService) Update(_ context.Context, id uuid.UUID, input doctors.UpdateInput) (*doctors.Doctor, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	d, ok := s.byID[id]
	if !ok {
		return nil, doctors.ErrNotFound
	}
	if input.Name != nil {
		d.Name = *input.Name
	}
	return d, nil
}

func (s *fakeDoctorService) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.byID[id]; !ok {
		return doctors.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type fakeSlotPreviewer struct {
	slots []schedule.Slot
	err   error
}

func (f *fakeSlotPreviewer) AvailableSlots(_ context.Context, _ uuid.UUID, _ time.Time) ([]schedule.Slot, error) {
	return f.slots, f.err
}

func TestAdminDoctorsCreate(t *testing.T) {
	svc := newFakeDoctorService()
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: svc})

	body := `{"name": "Dra. Pérez", "phoneNumber": "+5491140000000"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/doctors", strings.NewReader(body))
	rec := do(h.Create, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.created, 1)
	assert.Equal(t, "Dra. Pérez", svc.created[0].Name)

	var created doctors.Doctor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEqual(t, uuid.Nil, created.ID)
}

func TestAdminDoctorsCreateValidation(t *testing.T) {
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: newFakeDoctorService()})

	req := httptest.NewRequest(http.MethodPost, "/admin/doctors", strings.NewReader(`{"name": ""}`))
	rec := do(h.Create, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/doctors", strings.NewReader(`{broken`))
	rec = do(h.Create, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDoctorsCreateDuplicatePhone(t *testing.T) {
	svc := newFakeDoctorService()
	svc.err = doctors.ErrDuplicatePhone
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: svc})

	req := httptest.NewRequest(http.MethodPost, "/admin/doctors", strings.NewReader(`{"name": "X", "phoneNumber": "+549"}`))
	rec := do(h.Create, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminDoctorsGet(t *testing.T) {
	doc := &doctors.Doctor{ID: uuid.New(), Name: "Dr. García"}
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: newFakeDoctorService(doc)})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/admin/doctors/"+doc.ID.String(), nil),
		map[string]string{"id": doc.ID.String()})
	rec := do(h.Get, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dr. García")

	req = withURLParams(httptest.NewRequest(http.MethodGet, "/admin/doctors/"+uuid.NewString(), nil),
		map[string]string{"id": uuid.NewString()})
	rec = do(h.Get, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = withURLParams(httptest.NewRequest(http.MethodGet, "/admin/doctors/nope", nil),
		map[string]string{"id": "nope"})
	rec = do(h.Get, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDoctorsListEmpty(t *testing.T) {
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: newFakeDoctorService()})

	rec := do(h.List, httptest.NewRequest(http.MethodGet, "/admin/doctors", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"doctors": []}`, rec.Body.String())
}

func TestAdminDoctorsUpdate(t *testing.T) {
	doc := &doctors.Doctor{ID: uuid.New(), Name: "Antes"}
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: newFakeDoctorService(doc)})

	req := withURLParams(httptest.NewRequest(http.MethodPatch, "/admin/doctors/"+doc.ID.String(),
		strings.NewReader(`{"name": "Después"}`)), map[string]string{"id": doc.ID.String()})
	rec := do(h.Update, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Después", doc.Name)
}

func TestAdminDoctorsUpdateRejectsBadSubscriptionStatus(t *testing.T) {
	doc := &doctors.Doctor{ID: uuid.New(), Name: "Dra. Ruiz"}
	svc := newFakeDoctorService(doc)
	svc.updateErr = doctors.ErrInvalidSubscriptionStatus
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: svc})

	req := withURLParams(httptest.NewRequest(http.MethodPatch, "/admin/doctors/"+doc.ID.String(),
		strings.NewReader(`{"subscriptionStatus": "expired"}`)), map[string]string{"id": doc.ID.String()})
	rec := do(h.Update, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "subscription status")
}

func TestAdminDoctorsDelete(t *testing.T) {
	doc := &doctors.Doctor{ID: uuid.New(), Name: "Dr. X"}
	svc := newFakeDoctorService(doc)
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: svc})

	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/admin/doctors/"+doc.ID.String(), nil),
		map[string]string{"id": doc.ID.String()})
	rec := do(h.Delete, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, svc.byID)

	rec = do(h.Delete, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminDoctorsSlotPreview(t *testing.T) {
	doc := &doctors.Doctor{ID: uuid.New()}
	start := time.Date(2026, time.August, 31, 9, 0, 0, 0, time.UTC)
	previewer := &fakeSlotPreviewer{slots: []schedule.Slot{
		{Start: start, End: start.Add(30 * time.Minute), Available: true},
		{Start: start.Add(30 * time.Minute), End: start.Add(time.Hour), Available: false},
	}}
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: newFakeDoctorService(doc), Slots: previewer})

	req := withURLParams(httptest.NewRequest(http.MethodGet,
		"/admin/doctors/"+doc.ID.String()+"/slots?date=2026-08-31", nil),
		map[string]string{"id": doc.ID.String()})
	rec := do(h.Slots, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Date  string          `json:"date"`
		Slots []schedule.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-08-31", resp.Date)
	require.Len(t, resp.Slots, 2)
	assert.True(t, resp.Slots[0].Available)
	assert.False(t, resp.Slots[1].Available)
}

func TestAdminDoctorsSlotPreviewBadDate(t *testing.T) {
	doc := &doctors.Doctor{ID: uuid.New()}
	h := NewAdminDoctorsHandler(AdminDoctorsConfig{Doctors: newFakeDoctorService(doc), Slots: &fakeSlotPreviewer{}})

	for _, query := range []string{"", "?date=31-08-2026", "?date=mañana"} {
		req := withURLParams(httptest.NewRequest(http.MethodGet,
			"/admin/doctors/"+doc.ID.String()+"/slots"+query, nil),
			map[string]string{"id": doc.ID.String()})
		rec := do(h.Slots, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", query)
	}
}
