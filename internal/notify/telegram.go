package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"citas/internal/models"
)

// TelegramNotifier pushes accepted bookings to the sales staff chats.
// Delivery is best effort; a failed send is logged and dropped.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramNotifier(token string, chatIDs []int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs, logger: logger}, nil
}

// BookingAccepted sends the booking summary to every configured chat.
func (n *TelegramNotifier) BookingAccepted(b *models.Booking, res *models.BookingResult) {
	text := formatAccepted(b, res)
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram notification failed")
		}
	}
}

func formatAccepted(b *models.Booking, res *models.BookingResult) string {
	var sb strings.Builder
	sb.WriteString("📅 Nueva cita agendada\n\n")
	fmt.Fprintf(&sb, "Fecha: %s a las %s\n", b.Date, b.Hour)
	fmt.Fprintf(&sb, "Nombre: %s\n", b.Name)
	fmt.Fprintf(&sb, "Teléfono: %s\n", b.Phone)
	fmt.Fprintf(&sb, "Email: %s\n", b.Email)
	if b.PropertyInterest != "" {
		fmt.Fprintf(&sb, "Prototipo: %s\n", b.PropertyInterest)
	}
	if b.Notes != "" {
		fmt.Fprintf(&sb, "Notas: %s\n", b.Notes)
	}
	if !res.Calendar.Success {
		sb.WriteString("\n⚠️ El evento de calendario no se creó; contactar al cliente manualmente.")
	} else if res.Calendar.Link != "" {
		fmt.Fprintf(&sb, "\nEvento: %s", res.Calendar.Link)
	}
	return sb.String()
}
