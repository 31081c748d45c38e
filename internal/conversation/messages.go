package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/turnofacil/turnofacil/internal/schedule"
)

// All patient-facing copy lives here. The dialogue is es-AR voseo.

const (
	msgServiceUnavailable = "Lo sentimos, el servicio no está disponible en este momento."

	msgNoSlots = "Lo sentimos, no hay turnos disponibles en los próximos días. Por favor, contactá directamente al consultorio."

	msgInvalidSlotNumber = "Por favor, respondé con un número válido de la lista."

	msgConfirmOrRetry = "Por favor, respondé *SÍ* para confirmar o *NO* para elegir otro horario."

	msgSessionError = "Hubo un error. Por favor, empezá de nuevo escribiendo *TURNO*."

	msgCancellationUnsupported = "Para cancelar tu turno, por favor contactá directamente al consultorio."

	msgPayAtOffice = "La consulta debe ser abonada en el consultorio. ¡Te espero!"

	msgSlotTaken = "Ese turno ya no está disponible. Te muestro los horarios actualizados:"
)

var spanishWeekdays = [7]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var spanishWeekdaysShort = [7]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}

var spanishMonths = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var spanishMonthsShort = [12]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

func formatLongDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s", spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1])
}

func formatShortDate(t time.Time) string {
	return fmt.Sprintf("%s, %d %s", spanishWeekdaysShort[t.Weekday()], t.Day(), spanishMonthsShort[t.Month()-1])
}

func formatClock(t time.Time) string {
	return t.Format("15:04")
}

func welcomeMessage(doctorWelcome string) string {
	return doctorWelcome + "\n\nEscribí *TURNO* para reservar una consulta o *AYUDA* para ver las opciones."
}

func helpMessage(doctorName string) string {
	return fmt.Sprintf("*Opciones disponibles:*\n\n• Escribí *TURNO* para reservar una consulta\n• Escribí *CANCELAR* para cancelar un turno existente\n• Escribí *AYUDA* para ver este mensaje\n\n_Dr./Dra. %s_", doctorName)
}

func bookingStartMessage(doctorName string) string {
	return fmt.Sprintf("¡Perfecto! Vamos a reservar tu turno con el Dr./Dra. %s.\n\n¿Cómo te llamás?", doctorName)
}

func slotListMessage(name string, slots []schedule.Slot) string {
	return fmt.Sprintf("Gracias, %s. Estos son los próximos turnos disponibles:\n\n%s\n\nRespondé con el número del turno que prefieras (1-%d).",
		name, formatSlotList(slots), len(slots))
}

func slotRelistMessage(slots []schedule.Slot) string {
	return fmt.Sprintf("Estos son los turnos disponibles:\n\n%s\n\nRespondé con el número del turno que prefieras (1-%d).",
		formatSlotList(slots), len(slots))
}

func confirmSlotMessage(start time.Time) string {
	return fmt.Sprintf("¿Confirmás el turno para el %s a las %s?\n\nRespondé *SÍ* para confirmar o *NO* para elegir otro horario.",
		formatLongDate(start), formatClock(start))
}

func paymentMessage(paymentLink string) string {
	return fmt.Sprintf("Para confirmar tu turno, por favor realizá el pago aquí: %s\n\nUna vez realizado, responderé con tu confirmación.", paymentLink)
}

func confirmationMessage(start time.Time, doctorName string) string {
	return fmt.Sprintf("✅ *Turno confirmado*\n\n📅 %s\n🕐 %s\n👨‍⚕️ Dr./Dra. %s\n\n*Dirección:* [Agregar dirección del consultorio]\n\nTe enviaré un recordatorio el día anterior. ¡Gracias por confiar en nosotros!",
		formatLongDate(start), formatClock(start), doctorName)
}

// ReminderMessage builds the day-before reminder sent by the sweep.
func ReminderMessage(patientName string, start time.Time, doctorName string) string {
	return fmt.Sprintf("⏰ *Recordatorio de turno*\n\nHola %s, te recordamos que mañana tenés turno:\n\n📅 %s\n🕐 %s\n👨‍⚕️ Dr./Dra. %s\n\n¿Confirmás tu asistencia? Respondé *SÍ* para confirmar o *NO* para cancelar.",
		patientName, formatLongDate(start), formatClock(start), doctorName)
}

func formatSlotList(slots []schedule.Slot) string {
	lines := make([]string, 0, len(slots))
	for i, slot := range slots {
		lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, formatShortDate(slot.Start), formatClock(slot.Start)))
	}
	return strings.Join(lines, "\n")
}
