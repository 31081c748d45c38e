package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnofacil/turnofacil/internal/appointments"
	"github.com/turnofacil/turnofacil/internal/doctors"
	"github.com/turnofacil/turnofacil/internal/patients"
)

type fakeAppointments struct {
	mu     sync.Mutex
	due    []appointments.Appointment
	marked []uuid.UUID
}

func (f *fakeAppointments) PendingReminders(_ context.Context, _ int) ([]appointments.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.due, nil
}

func (f *fakeAppointments) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

type fakeDoctorSource struct {
	doctor *doctors.Doctor
}

func (f *fakeDoctorSource) GetByID(_ context.Context, id uuid.UUID) (*doctors.Doctor, error) {
	if f.doctor == nil || f.doctor.ID != id {
		return nil, doctors.ErrNotFound
	}
	return f.doctor, nil
}

type fakePatientSource struct {
	records map[uuid.UUID]*patients.Patient
}

func (f *fakePatientSource) GetByID(_ context.Context, id uuid.UUID) (*patients.Patient, error) {
	p, ok := f.records[id]
	if !ok {
		return nil, patients.ErrNotFound
	}
	return p, nil
}

type fakeMessenger struct {
	mu    sync.Mutex
	sends map[string]string
	fail  map[string]error
}

func (f *fakeMessenger) SendText(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[to]; err != nil {
		return err
	}
	if f.sends == nil {
		f.sends = map[string]string{}
	}
	f.sends[to] = body
	return nil
}

func TestProcessDueSendsAndMarks(t *testing.T) {
	doctor := &doctors.Doctor{ID: uuid.New(), Name: "Laura Gómez"}
	patient := &patients.Patient{ID: uuid.New(), PhoneNumber: "+5491155550000", Name: "María"}
	appt := appointments.Appointment{
		ID:          uuid.New(),
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		ScheduledAt: time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC),
		Status:      appointments.StatusConfirmed,
	}

	appts := &fakeAppointments{due: []appointments.Appointment{appt}}
	messenger := &fakeMessenger{}
	worker := NewWorker(
		appts,
		&fakeDoctorSource{doctor: doctor},
		&fakePatientSource{records: map[uuid.UUID]*patients.Patient{patient.ID: patient}},
		messenger,
		1440,
		nil,
	)

	sent, err := worker.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []uuid.UUID{appt.ID}, appts.marked)

	body := messenger.sends[patient.PhoneNumber]
	assert.Contains(t, body, "⏰ *Recordatorio de turno*")
	assert.Contains(t, body, "Hola María")
	assert.Contains(t, body, "Dr./Dra. Laura Gómez")
}

func TestProcessDueSkipsFailuresAndContinues(t *testing.T) {
	doctor := &doctors.Doctor{ID: uuid.New(), Name: "Laura Gómez"}
	broken := &patients.Patient{ID: uuid.New(), PhoneNumber: "+5491100000001", Name: "Uno"}
	healthy := &patients.Patient{ID: uuid.New(), PhoneNumber: "+5491100000002", Name: "Dos"}

	mk := func(p *patients.Patient) appointments.Appointment {
		return appointments.Appointment{
			ID:          uuid.New(),
			DoctorID:    doctor.ID,
			PatientID:   p.ID,
			ScheduledAt: time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC),
			Status:      appointments.StatusConfirmed,
		}
	}
	apptBroken := mk(broken)
	apptHealthy := mk(healthy)

	appts := &fakeAppointments{due: []appointments.Appointment{apptBroken, apptHealthy}}
	messenger := &fakeMessenger{fail: map[string]error{broken.PhoneNumber: errors.New("provider down")}}
	worker := NewWorker(
		appts,
		&fakeDoctorSource{doctor: doctor},
		&fakePatientSource{records: map[uuid.UUID]*patients.Patient{
			broken.ID:  broken,
			healthy.ID: healthy,
		}},
		messenger,
		1440,
		nil,
	)

	sent, err := worker.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	// The failed appointment stays unmarked so the next sweep retries it.
	assert.Equal(t, []uuid.UUID{apptHealthy.ID}, appts.marked)
}

func TestProcessDueEmpty(t *testing.T) {
	worker := NewWorker(
		&fakeAppointments{},
		&fakeDoctorSource{},
		&fakePatientSource{},
		&fakeMessenger{},
		1440,
		nil,
	)
	sent, err := worker.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	doctor := &doctors.Doctor{ID: uuid.New(), Name: "Laura Gómez"}
	patient := &patients.Patient{ID: uuid.New(), PhoneNumber: "+5491155550000", Name: "María"}
	appt := appointments.Appointment{
		ID:          uuid.New(),
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		ScheduledAt: time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC),
	}

	appts := &fakeAppointments{due: []appointments.Appointment{appt}}
	messenger := &fakeMessenger{}
	worker := NewWorker(
		appts,
		&fakeDoctorSource{doctor: doctor},
		&fakePatientSource{records: map[uuid.UUID]*patients.Patient{patient.ID: patient}},
		messenger,
		1440,
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		appts.mu.Lock()
		n := len(appts.marked)
		appts.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
	assert.Len(t, appts.marked, 1)
}
