package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/docker/libtrust"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/auth/authn"
	"github.com/portside-registry/auth/config"
	"github.com/portside-registry/auth/oidc"
	"github.com/portside-registry/auth/pkg/metrics"
	"github.com/portside-registry/auth/user"
)

func init() {
	// Registry clients expect the aud claim to be a plain string.
	jwt.MarshalSingleStringAsArray = false
}

func main() {
	var (
		configFile string
		pkFile     string
		addr       string
		debug      bool
	)

	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file")
	flag.StringVar(&pkFile, "key", "", "Private key file (a new key is generated when empty)")
	flag.StringVar(&addr, "addr", "", "Address to listen on (overrides the configuration file)")
	flag.BoolVar(&debug, "debug", false, "Debug mode")

	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	if debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Sugar().Fatalf("Error loading configuration %s: %v", configFile, err)
	}

	var signingKey libtrust.PrivateKey

	if pkFile == "" {
		signingKey, err = libtrust.GenerateECP256PrivateKey()
		if err != nil {
			logger.Sugar().Fatalf("Error generating private key: %v", err)
		}

		logger.Sugar().Debugf("Using newly generated key with id %s", signingKey.KeyID())
	} else {
		signingKey, err = libtrust.LoadKeyFile(pkFile)
		if err != nil {
			logger.Sugar().Fatalf("Error loading key file %s: %v", pkFile, err)
		}

		logger.Sugar().Debugf("Loaded private key with id %s", signingKey.KeyID())
	}

	ctx := context.Background()

	store, err := cfg.UserStore.Config.CreateUserStore(ctx)
	if err != nil {
		logger.Sugar().Fatalf("Error creating user store: %v", err)
	}

	accessTokenIssuer, err := cfg.AccessTokenIssuer.Config.CreateAccessTokenIssuer(signingKey)
	if err != nil {
		logger.Sugar().Fatalf("Error creating access token issuer: %v", err)
	}

	refreshTokenIssuer, err := cfg.RefreshTokenIssuer.Config.CreateRefreshTokenIssuer(signingKey)
	if err != nil {
		logger.Sugar().Fatalf("Error creating refresh token issuer: %v", err)
	}

	refreshTokenVerifier, err := cfg.RefreshTokenIssuer.Config.CreateRefreshTokenVerifier(signingKey.PublicKey())
	if err != nil {
		logger.Sugar().Fatalf("Error creating refresh token verifier: %v", err)
	}

	authorizer, err := cfg.Authorizer.Config.CreateAuthorizer()
	if err != nil {
		logger.Sugar().Fatalf("Error creating authorizer: %v", err)
	}

	serviceMetrics := metrics.New()

	service := auth.TokenServiceImpl{
		Authenticator: auth.Authenticator{
			PasswordAuthenticator: authn.NewChain(
				authn.NewUserAuthenticator(store),
				authn.NewAccessTokenAuthenticator(store, store),
			),
			RefreshTokenAuthenticator: authn.NewRefreshTokenAuthenticator(refreshTokenVerifier, store),
		},
		Authorizer: authorizer,
		TokenIssuer: auth.TokenIssuer{
			AccessTokenIssuer:  accessTokenIssuer,
			RefreshTokenIssuer: refreshTokenIssuer,
		},
		Logger:  logger,
		Metrics: serviceMetrics,
	}

	server := auth.TokenServer{
		Service:     service,
		SigningKeys: []libtrust.PublicKey{signingKey.PublicKey()},
		Logger:      logger,
	}

	router := mux.NewRouter()
	router.Path("/token").Methods("GET").HandlerFunc(server.TokenHandler)
	router.Path("/token").Methods("POST").HandlerFunc(server.OAuth2Handler)
	router.Path("/token/keys").Methods("GET").HandlerFunc(server.KeyHandler)

	if cfg.OIDC.Enabled() {
		logins, err := cfg.StateStore.CreateStateStore(ctx)
		if err != nil {
			logger.Sugar().Fatalf("Error creating state store: %v", err)
		}

		provider := cfg.OIDC.Provider()

		handler := oidc.Handler{
			Flow: &oidc.Flow{
				Provider:  &provider,
				Discovery: oidc.NewDiscoveryClient(),
				Verifier:  oidc.NewIDTokenVerifier(oidc.NewKeySetClient()),
				Logins:    logins,
				Accounts: user.Resolver{
					Users:            store,
					Identities:       store,
					AutoProvision:    cfg.OIDC.AutoProvision,
					ProvisionAsAdmin: cfg.OIDC.ProvisionAsAdmin,
					Logger:           logger,
				},
				Logger: logger,
			},
			Sessions: cookieSessionStarter{
				issuer:     cfg.OIDC.ClientID,
				signingKey: signingKey,
			},
			Logger:  logger,
			Metrics: serviceMetrics,
		}

		router.Path("/oidc/login").Methods("GET").HandlerFunc(handler.LoginHandler)
		router.Path("/oidc/callback").Methods("GET").HandlerFunc(handler.CallbackHandler)

		logger.Sugar().Infof("Federated login enabled with provider %s", cfg.OIDC.Issuer)
	}

	router.Path("/metrics").Methods("GET").Handler(promhttp.Handler())
	router.Path("/healthz").Methods("GET").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})

	if addr == "" {
		addr = cfg.Server.Address
	}
	if addr == "" {
		addr = ":8080"
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Listening on %s", addr)

	if cfg.Server.CertFile != "" {
		err = httpServer.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
	} else {
		err = httpServer.ListenAndServe()
	}

	if err != nil {
		logger.Sugar().Infof("Error serving: %v", err)
	}
}
