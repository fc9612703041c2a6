package email

import (
	"fmt"
	"strings"
	"time"
)

const productName = "SMART PROJECTOR MANAGER"

const timeLayout = "Mon 02 Jan 2006 15:04 MST"

func greeting(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "User"
	}
	return fmt.Sprintf("Hello %s,\n\n", name)
}

func OTPMessage(to, name, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your " + productName + " OTP",
		Body: greeting(name) +
			fmt.Sprintf("Your OTP is: %s\nIt expires in %d minutes.\n", code, int(ttl.Minutes())),
	}
}

func VerificationLinkMessage(to, name, link string) Message {
	return Message{
		To:      to,
		Subject: "Verify your " + productName + " account",
		Body: greeting(name) +
			"Click to verify your email:\n\n" + link + "\n\n" +
			"If you didn't request this, ignore this message.\n",
	}
}

// CredentialsMessage envía el secreto generado tras un login por OTP.
func CredentialsMessage(to, name, username, secret string) Message {
	return Message{
		To:      to,
		Subject: "Your " + productName + " credentials",
		Body: greeting(name) +
			"You signed in with a one-time code. Your account credentials are:\n\n" +
			fmt.Sprintf("Username: %s\nPassword: %s\n\n", username, secret) +
			"Keep them private. A new password is issued each time you sign in with a code.\n",
	}
}

func CheckOutMessage(to, name, equipment string, at time.Time) Message {
	return Message{
		To:      to,
		Subject: "Projector checked out: " + equipment,
		Body: greeting(name) +
			fmt.Sprintf("You checked out %s at %s.\nPlease return it to the department store when you are done.\n",
				equipment, at.UTC().Format(timeLayout)),
	}
}

func CheckInMessage(to, name, equipment string, at time.Time) Message {
	return Message{
		To:      to,
		Subject: "Projector returned: " + equipment,
		Body: greeting(name) +
			fmt.Sprintf("%s was checked in at %s. Thank you.\n", equipment, at.UTC().Format(timeLayout)),
	}
}

func BookingMessage(to, name, equipment string, start, end time.Time, purpose string) Message {
	return Message{
		To:      to,
		Subject: "Booking confirmed: " + equipment,
		Body: greeting(name) +
			fmt.Sprintf("%s is booked for you from %s to %s.\nPurpose: %s\n",
				equipment, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout), purpose),
	}
}

func BookingCancelledMessage(to, name, equipment string, start, end time.Time) Message {
	return Message{
		To:      to,
		Subject: "Booking cancelled: " + equipment,
		Body: greeting(name) +
			fmt.Sprintf("Your booking of %s from %s to %s was cancelled.\n",
				equipment, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)),
	}
}

// EquipmentChangeMessage cubre alta, edición y baja de equipos.
func EquipmentChangeMessage(to, name, change, equipment string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Projector %s: %s", change, equipment),
		Body:    greeting(name) + fmt.Sprintf("%s was %s by you.\n", equipment, change),
	}
}
