package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// WhatsApp is a Sender backed by a linked WhatsApp device.
type WhatsApp struct {
	client *whatsmeow.Client
	log    zerolog.Logger
}

var _ Sender = (*WhatsApp)(nil)

// OpenWhatsApp loads (or creates) the device store under dataDir. Call
// Connect before sending.
func OpenWhatsApp(ctx context.Context, dataDir string, log zerolog.Logger) (*WhatsApp, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create whatsapp data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(dataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, waLog.Zerolog(log.With().Str("module", "store").Logger()))
	if err != nil {
		return nil, fmt.Errorf("open whatsapp store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}

	w := &WhatsApp{
		client: whatsmeow.NewClient(device, waLog.Zerolog(log.With().Str("module", "client").Logger())),
		log:    log,
	}
	w.client.AddEventHandler(w.handleEvent)
	return w, nil
}

// Connect connects the device. An unpaired device prints pairing QR codes to
// qrOut and returns once pairing finishes.
func (w *WhatsApp) Connect(ctx context.Context, qrOut io.Writer) error {
	if w.client.Store.ID != nil {
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("connect whatsapp: %w", err)
		}
		return nil
	}

	qrChan, err := w.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp qr channel: %w", err)
	}
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connect whatsapp: %w", err)
	}
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			printQR(qrOut, evt.Code)
		case "success":
			w.log.Info().Msg("whatsapp device paired")
		default:
			w.log.Info().Str("event", evt.Event).Msg("whatsapp pairing event")
		}
	}
	if w.client.Store.ID == nil {
		return fmt.Errorf("whatsapp pairing did not complete")
	}
	return nil
}

func printQR(out io.Writer, code string) {
	if out == nil {
		return
	}
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(out, "WhatsApp pairing code: %s\n", code)
		return
	}
	fmt.Fprintln(out, q.ToSmallString(false))
	fmt.Fprintln(out, "Scan with WhatsApp: Settings > Linked Devices > Link a Device")
}

// Send delivers text to phone after checking the number is registered.
func (w *WhatsApp) Send(ctx context.Context, phone, text string) error {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	resp, err := w.client.IsOnWhatsApp(ctx, []string{"+" + phone})
	if err != nil {
		return fmt.Errorf("check whatsapp registration: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", phone)
	}

	sent, err := w.client.SendMessage(ctx, resp[0].JID, &waE2E.Message{Conversation: &text})
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	w.log.Debug().Str("message_id", string(sent.ID)).Str("jid", resp[0].JID.String()).Msg("whatsapp message sent")
	return nil
}

// Close disconnects the device.
func (w *WhatsApp) Close() {
	w.client.Disconnect()
}

func (w *WhatsApp) handleEvent(evt any) {
	switch evt.(type) {
	case *events.Connected:
		w.log.Info().Msg("connected to whatsapp")
	case *events.Disconnected:
		w.log.Warn().Msg("disconnected from whatsapp")
	case *events.LoggedOut:
		w.log.Warn().Msg("logged out from whatsapp; the device must be paired again")
	}
}
