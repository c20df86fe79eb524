package usecase

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
	"github.com/xavierca1/gestion-leads/internal/infra/metrics"
	"github.com/xavierca1/gestion-leads/internal/ratelimit"
)

const (
	DefaultFormType = "contact"
	DefaultOrigin   = "website"

	maxShortFieldLength = 200
	maxURLLength        = 2048

	DefaultNotifyTimeout = 15 * time.Second
)

type SubmitLeadUseCase struct {
	Repo     entity.LeadRepositoryInterface
	Notifier Notifier
	Limiter  RateLimiter
	Limits   SanitizeLimits
	Logger   *zap.Logger

	// IPChecker nil desliga o limite por IP.
	IPChecker IPRateChecker
	IPPolicy  IPRatePolicy

	NotifyTimeout time.Duration
	now           func() time.Time
}

func NewSubmitLeadUseCase(
	repo entity.LeadRepositoryInterface,
	notifier Notifier,
	limiter RateLimiter,
	logger *zap.Logger,
) *SubmitLeadUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmitLeadUseCase{
		Repo:     repo,
		Notifier: notifier,
		Limiter:  limiter,
		Limits:   DefaultSanitizeLimits,
		Logger:   logger,

		NotifyTimeout: DefaultNotifyTimeout,
		now:           time.Now,
	}
}

// WithIPRateLimit liga a checagem durável por IP, feita depois do limite em memória.
func (uc *SubmitLeadUseCase) WithIPRateLimit(checker IPRateChecker, policy IPRatePolicy) *SubmitLeadUseCase {
	if policy.Operation == "" {
		policy.Operation = IPOperationLeadSubmit
	}
	uc.IPChecker = checker
	uc.IPPolicy = policy
	return uc
}

func (uc *SubmitLeadUseCase) Execute(ctx context.Context, input SubmitLeadInput) (*SubmitLeadOutput, error) {
	input = uc.sanitize(input)

	if validationErrors := ValidateLeadInput(input); len(validationErrors) > 0 {
		errMsg := "validation failed: "
		for i, e := range validationErrors {
			if i > 0 {
				errMsg += ", "
			}
			errMsg += e.Field + " (" + e.Message + ")"
		}
		metrics.RecordLeadSubmission(input.FormType, metrics.ResultInvalid)
		return nil, &DomainError{
			Code:    CodeValidation,
			Message: errMsg,
			Fields:  validationErrors,
		}
	}

	// gate antes de qualquer chamada de rede
	if uc.Limiter != nil && !uc.Limiter.Allow(ratelimit.LeadKey(input.FormType, input.Email)) {
		uc.Logger.Info("lead bloqueado pelo rate limit",
			zap.String("form_type", input.FormType),
			zap.String("email", input.Email),
		)
		metrics.RecordLeadSubmission(input.FormType, metrics.ResultRateLimited)
		metrics.RecordRateLimitRejection("lead")
		return nil, &DomainError{
			Code:    CodeRateLimited,
			Message: "Has enviado demasiadas solicitudes. Inténtalo de nuevo más tarde.",
		}
	}

	if err := uc.checkIP(ctx, input); err != nil {
		return nil, err
	}

	lead, err := entity.NewLead(input.Origin, input.FormType)
	if err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}
	uc.fillLead(lead, input)

	// o envio roda até o fim mesmo se o cliente desconectar
	ctx = context.WithoutCancel(ctx)

	if err := uc.Repo.Create(ctx, lead); err != nil {
		uc.Logger.Error("falha ao gravar lead", zap.String("form_type", lead.FormType), zap.Error(err))
		metrics.RecordLeadSubmission(lead.FormType, metrics.ResultFailed)
		return nil, &TechnicalError{
			Code:    CodeDatabase,
			Message: "No hemos podido enviar tu solicitud. Inténtalo de nuevo.",
			Err:     err,
		}
	}

	if uc.Notifier != nil {
		timeout := uc.NotifyTimeout
		if timeout <= 0 {
			timeout = DefaultNotifyTimeout
		}
		notifyCtx, cancel := context.WithTimeout(ctx, timeout)
		err := uc.Notifier.Notify(notifyCtx, buildNotification(lead))
		cancel()
		if err != nil {
			uc.Logger.Warn("lead gravado, mas a notificação falhou",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
		}
	}

	metrics.RecordLeadSubmission(lead.FormType, metrics.ResultAccepted)
	uc.Logger.Info("lead recebido",
		zap.String("lead_id", lead.ID),
		zap.String("form_type", lead.FormType),
		zap.String("origen", lead.Origin),
	)

	return &SubmitLeadOutput{
		ID:     lead.ID,
		Status: lead.Status,
		Msg:    "¡Gracias! Hemos recibido tu solicitud y te contactaremos pronto.",
	}, nil
}

// checkIP consulta check_ip_rate_limit. Se o banco falhar, deixa passar.
func (uc *SubmitLeadUseCase) checkIP(ctx context.Context, input SubmitLeadInput) error {
	if uc.IPChecker == nil || input.Meta.IP == "" {
		return nil
	}
	p := uc.IPPolicy
	res, err := uc.IPChecker.CheckIPRateLimit(ctx, input.Meta.IP, p.Operation, p.MaxAttempts, p.WindowMinutes, p.BlockMinutes)
	if err != nil {
		uc.Logger.Warn("check_ip_rate_limit falhou, liberando lead", zap.String("ip", input.Meta.IP), zap.Error(err))
		return nil
	}
	if res.Allowed {
		return nil
	}

	uc.Logger.Info("IP bloqueado pelo rate limit",
		zap.String("ip", input.Meta.IP),
		zap.Int("attempts", res.Attempts),
		zap.String("reason", res.Reason),
	)
	metrics.RecordLeadSubmission(input.FormType, metrics.ResultRateLimited)
	metrics.RecordRateLimitRejection("ip")

	derr := &DomainError{
		Code:    CodeRateLimited,
		Message: "Demasiadas solicitudes desde esta IP. Inténtalo más tarde.",
	}
	if res.BlockedUntil != nil {
		if wait := res.BlockedUntil.Sub(uc.clock()); wait > 0 {
			derr.RetryAfter = wait
		}
	}
	return derr
}

func (uc *SubmitLeadUseCase) clock() time.Time {
	if uc.now == nil {
		return time.Now()
	}
	return uc.now()
}

func (uc *SubmitLeadUseCase) sanitize(in SubmitLeadInput) SubmitLeadInput {
	limits := uc.Limits
	if limits == (SanitizeLimits{}) {
		limits = DefaultSanitizeLimits
	}

	in.FormType = SanitizeInput(in.FormType, maxShortFieldLength)
	if in.FormType == "" {
		in.FormType = DefaultFormType
	}
	in.Origin = SanitizeInput(in.Origin, maxShortFieldLength)
	if in.Origin == "" {
		in.Origin = in.FormType
	}
	in.Persona = strings.ToLower(SanitizeInput(in.Persona, maxShortFieldLength))

	in.Name = SanitizeInput(in.Name, limits.Name)
	in.Email = SanitizeInput(in.Email, limits.Email)
	in.Phone = SanitizeInput(in.Phone, maxShortFieldLength)
	in.Message = SanitizeInput(in.Message, limits.Message)
	in.Location = SanitizeInput(in.Location, maxShortFieldLength)
	in.AvailableFrom = SanitizeInput(in.AvailableFrom, maxShortFieldLength)

	in.UTMSource = SanitizeInput(in.UTMSource, maxShortFieldLength)
	in.UTMMedium = SanitizeInput(in.UTMMedium, maxShortFieldLength)
	in.UTMCampaign = SanitizeInput(in.UTMCampaign, maxShortFieldLength)
	in.UTMTerm = SanitizeInput(in.UTMTerm, maxShortFieldLength)
	in.UTMContent = SanitizeInput(in.UTMContent, maxShortFieldLength)

	in.PageURL = SanitizeInput(in.PageURL, maxURLLength)
	in.Referrer = SanitizeInput(in.Referrer, maxURLLength)
	in.UserAgent = SanitizeInput(in.UserAgent, limits.Message)
	in.Meta.PageURL = SanitizeInput(in.Meta.PageURL, maxURLLength)
	in.Meta.UserAgent = SanitizeInput(in.Meta.UserAgent, limits.Message)
	return in
}

func (uc *SubmitLeadUseCase) fillLead(lead *entity.Lead, in SubmitLeadInput) {
	lead.Persona = entity.Persona(in.Persona)
	lead.Name = in.Name
	lead.Email = in.Email
	lead.Phone = in.Phone
	lead.Message = in.Message
	lead.Location = in.Location
	lead.PrivacyAccepted = in.PrivacyAccepted
	lead.MarketingAccepted = in.MarketingAccepted

	lead.AreaM2 = parseDecimal(string(in.Area))
	lead.Rooms = parseCount(string(in.Rooms))
	lead.DesiredRent = parseDecimal(string(in.DesiredRent))
	lead.AvailableFrom = parseDate(in.AvailableFrom)

	attachTracking(lead, in)
}

// attachTracking nunca sobrescreve o que o formulário já mandou.
func attachTracking(lead *entity.Lead, in SubmitLeadInput) {
	lead.PageURL = firstNonEmpty(in.PageURL, in.Meta.PageURL)
	lead.Referrer = in.Referrer
	lead.UserAgent = firstNonEmpty(in.UserAgent, in.Meta.UserAgent)

	lead.UTMSource = in.UTMSource
	lead.UTMMedium = in.UTMMedium
	lead.UTMCampaign = in.UTMCampaign
	lead.UTMTerm = in.UTMTerm
	lead.UTMContent = in.UTMContent

	if lead.PageURL == "" {
		return
	}
	u, err := url.Parse(lead.PageURL)
	if err != nil {
		return
	}
	q := u.Query()
	lead.UTMSource = firstNonEmpty(lead.UTMSource, SanitizeInput(q.Get("utm_source"), maxShortFieldLength))
	lead.UTMMedium = firstNonEmpty(lead.UTMMedium, SanitizeInput(q.Get("utm_medium"), maxShortFieldLength))
	lead.UTMCampaign = firstNonEmpty(lead.UTMCampaign, SanitizeInput(q.Get("utm_campaign"), maxShortFieldLength))
	lead.UTMTerm = firstNonEmpty(lead.UTMTerm, SanitizeInput(q.Get("utm_term"), maxShortFieldLength))
	lead.UTMContent = firstNonEmpty(lead.UTMContent, SanitizeInput(q.Get("utm_content"), maxShortFieldLength))
}

func buildNotification(lead *entity.Lead) entity.LeadNotification {
	fields := map[string]string{
		"origen":         lead.Origin,
		"persona":        string(lead.Persona),
		"location":       lead.Location,
		"utm_source":     lead.UTMSource,
		"utm_medium":     lead.UTMMedium,
		"utm_campaign":   lead.UTMCampaign,
		"page_url":       lead.PageURL,
		"privacy":        strconv.FormatBool(lead.PrivacyAccepted),
		"marketing":      strconv.FormatBool(lead.MarketingAccepted),
		"area_m2":        formatOptionalFloat(lead.AreaM2),
		"desired_rent":   formatOptionalFloat(lead.DesiredRent),
		"available_from": formatOptionalDate(lead.AvailableFrom),
	}
	if lead.Rooms != nil {
		fields["rooms"] = strconv.Itoa(*lead.Rooms)
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}

	return entity.LeadNotification{
		LeadID:   lead.ID,
		FormType: lead.FormType,
		Nombre:   lead.Name,
		Email:    lead.Email,
		Phone:    lead.Phone,
		Message:  lead.Message,
		Fields:   fields,
	}
}

var numberNoise = strings.NewReplacer(" ", "", "\u00a0", "", "€", "", "m²", "", "m2", "")

// parseDecimal aceita "85", "85.5", "85,5" e "1.200,50". Qualquer outra coisa vira nil.
func parseDecimal(raw string) *float64 {
	s := numberNoise.Replace(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	if strings.Contains(s, ".") && strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseCount(raw string) *int {
	f := parseDecimal(raw)
	if f == nil || *f < 0 || *f != math.Trunc(*f) || *f > math.MaxInt32 {
		return nil
	}
	n := int(*f)
	return &n
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
