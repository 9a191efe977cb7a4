package app

import (
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/Kirill552/firniture-sub001/internal/adapters/backend"
	"github.com/Kirill552/firniture-sub001/internal/adapters/httpserver"
	"github.com/Kirill552/firniture-sub001/internal/adapters/repo/postgres"
	"github.com/Kirill552/firniture-sub001/internal/domain"
	"github.com/Kirill552/firniture-sub001/internal/usecase"
)

type App struct {
	DB       *gorm.DB
	WizardUC *usecase.WizardUC
	Clarify  *usecase.ClarifyUC
	CAM      *usecase.CAMUC
	Hardware *usecase.HardwareUC
	Prefs    domain.PrefsRepo

	oauthCfg   *oauth2.Config
	sessionKey []byte
}

func New(db *gorm.DB) (*App, error) {
	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8000"
	}
	api := backend.New(backendURL, os.Getenv("BACKEND_TOKEN"))

	draftRepo := postgres.NewDraftRepo(db)
	prefsRepo := postgres.NewPrefsRepo(db)

	pollInterval := usecase.DefaultPollInterval
	if raw := os.Getenv("CAM_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			pollInterval = d
		}
	}

	wizard := usecase.NewWizardUC(api, draftRepo)

	a := &App{
		DB:       db,
		WizardUC: wizard,
		Clarify:  usecase.NewClarifyUC(api, wizard),
		CAM:      usecase.NewCAMUC(api, pollInterval),
		Hardware: usecase.NewHardwareUC(api),
		Prefs:    prefsRepo,
	}

	sessionKey := os.Getenv("SESSION_KEY")
	if sessionKey == "" {
		sessionKey = "dev-insecure"
	}
	a.sessionKey = []byte(sessionKey)

	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if googleID != "" && googleSecret != "" {
		a.oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.WizardUC, a.Clarify, a.CAM, a.Hardware, a.Prefs, a.oauthCfg, a.sessionKey)
}

func (a *App) Migrate() error {
	return a.DB.AutoMigrate(&domain.TablePrefs{}, &domain.DraftSnapshot{})
}

// Close stops the CAM pollers; call it before process exit.
func (a *App) Close() {
	a.CAM.Close()
}
