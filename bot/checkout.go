package bot

import (
	"context"
	"errors"
	"strings"

	"campus-delivery/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

const shareContactText = "📱 Share phone number"

// handleFormInput feeds text into the delivery-details form. It reports
// false when the checkout view is not collecting a field.
func (b *Bot) handleFormInput(ctx context.Context, s *session, text string) bool {
	s.mu.Lock()
	if s.route.View != ViewCheckout {
		s.mu.Unlock()
		return false
	}
	step := s.step
	if step != stepName && step != stepPhone && step != stepAddress {
		s.mu.Unlock()
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.mu.Unlock()
		b.prompt(s, step)
		return true
	}
	switch step {
	case stepName:
		s.form.CustomerName = text
		s.step = stepPhone
	case stepPhone:
		s.form.PhoneNumber = text
		s.step = stepAddress
	case stepAddress:
		s.form.DeliveryAddress = text
		s.step = stepReady
	}
	next := s.step
	s.mu.Unlock()

	if next == stepReady {
		// Re-send the summary below the answers so "Place order" is in view.
		b.navigate(ctx, s, CheckoutRoute, 0)
		return true
	}
	b.refresh(s)
	b.prompt(s, next)
	return true
}

// prompt asks for the field collected at step.
func (b *Bot) prompt(s *session, step formStep) {
	s.mu.Lock()
	chatID := s.chatID
	s.mu.Unlock()

	switch step {
	case stepName:
		b.sendRemoveKeyboard(chatID, "👤 Send your full name:")
	case stepPhone:
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(shareContactText)),
		)
		kb.ResizeKeyboard = true
		kb.OneTimeKeyboard = true
		b.sendWithReplyKeyboard(chatID, "📱 Send your phone number or share it with the button:", kb)
	case stepAddress:
		b.sendRemoveKeyboard(chatID, "📍 Send your delivery address (hall, room):")
	}
}

// placeOrder submits the cart in the background. The session shows a
// placing state until the API answers.
func (b *Bot) placeOrder(s *session, callbackID string) {
	s.mu.Lock()
	form := s.form
	s.mu.Unlock()

	if !form.Complete() {
		b.answer(callbackID, "Please fill in all delivery details")
		return
	}
	if s.submitter.InFlight() {
		b.answer(callbackID, "Your order is already being placed")
		return
	}
	b.answer(callbackID, "")

	s.mu.Lock()
	s.placing = true
	s.mu.Unlock()
	b.refresh(s)

	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		b.submitOrder(s, form)
	}()
}

// submitOrder runs one submission and reports the outcome. A press that
// lost the race to a running submission leaves the placing state alone.
func (b *Bot) submitOrder(s *session, form services.CheckoutForm) {
	err := s.submitter.Submit(context.Background(), form)
	if errors.Is(err, services.ErrSubmissionInFlight) {
		s.mu.Lock()
		chatID := s.chatID
		s.mu.Unlock()
		b.send(chatID, "Your order is already being placed.")
		return
	}

	s.mu.Lock()
	s.placing = false
	if err == nil {
		s.form = services.CheckoutForm{}
		s.step = stepIdle
	}
	chatID := s.chatID
	s.mu.Unlock()

	switch {
	case err == nil:
		b.send(chatID, "✅ Order placed successfully!")
	case errors.Is(err, services.ErrEmptyCart):
		b.send(chatID, "Your cart is empty.")
	default:
		log.Error().Err(err).Int64("user_id", s.userID).Msg("place order")
		b.send(chatID, "Something went wrong. Please try again.")
	}
	b.refresh(s)
}

func (b *Bot) sendWithReplyKeyboard(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.out.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send error")
	}
}

func (b *Bot) sendRemoveKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.out.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send error")
	}
}
