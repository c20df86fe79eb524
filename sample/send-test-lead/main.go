package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/integration/kommo"
	"github.com/xavierca1/gestion-leads/internal/infra/integration/whatsapp"
	"github.com/xavierca1/gestion-leads/internal/infra/mail"
)

// Manda um lead de teste pelo canal escolhido, sem passar pelo banco.
func main() {
	channel := flag.String("channel", "kommo", "kommo | whatsapp | email")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Aviso: arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	n := entity.LeadNotification{
		LeadID:   "teste-" + strconv.FormatInt(time.Now().Unix(), 10),
		FormType: "owner_form",
		Nombre:   "Lucía Prueba Martín",
		Email:    "lucia.prueba@example.com",
		Phone:    "+34612345678",
		Message:  "Lead de prueba: piso de 2 habitaciones en Valencia",
		Fields: map[string]string{
			"origen":   "sample",
			"location": "Valencia",
			"rooms":    "2",
		},
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var notifier interface {
		Notify(ctx context.Context, n entity.LeadNotification) error
	}
	switch *channel {
	case "kommo":
		if os.Getenv("KOMMO_API_TOKEN") == "" || os.Getenv("KOMMO_BASE_URL") == "" {
			log.Fatal("❌ KOMMO_API_TOKEN e KOMMO_BASE_URL devem estar configurados no .env")
		}
		statusID, _ := strconv.Atoi(os.Getenv("KOMMO_STATUS_ID"))
		notifier = kommo.NewClient(os.Getenv("KOMMO_BASE_URL"), os.Getenv("KOMMO_API_TOKEN"), statusID, httpClient, logger)
	case "whatsapp":
		notifier = whatsapp.NewClient(whatsapp.Config{
			BaseURL:     os.Getenv("WHATSAPP_BASE_URL"),
			AccessToken: os.Getenv("WHATSAPP_ACCESS_TOKEN"),
			PhoneID:     os.Getenv("WHATSAPP_PHONE_ID"),
			NotifyTo:    splitList(os.Getenv("WHATSAPP_NOTIFY_TO")),
			Template:    os.Getenv("WHATSAPP_TEMPLATE"),
		}, httpClient, logger)
	case "email":
		port, err := strconv.Atoi(os.Getenv("MAIL_PORT"))
		if err != nil {
			port = 587
		}
		sender := mail.NewEmailSender(os.Getenv("MAIL_HOST"), port, os.Getenv("MAIL_USER"), os.Getenv("MAIL_PASS"),
			os.Getenv("MAIL_FROM"), splitList(os.Getenv("NOTIFY_TO")))
		notifier = mail.NewLeadNotifier(sender, logger)
	default:
		log.Fatalf("canal desconhecido: %s", *channel)
	}

	fmt.Printf("🔄 Enviando lead de teste via %s...\n", *channel)
	fmt.Printf("   Nome: %s\n", n.Nombre)
	fmt.Printf("   Email: %s\n", n.Email)
	fmt.Printf("   Teléfono: %s\n\n", n.Phone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := notifier.Notify(ctx, n); err != nil {
		log.Fatalf("Erro ao enviar lead de teste: %v", err)
	}
	fmt.Println("Lead de teste enviado com sucesso!")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
