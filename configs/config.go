package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Nimble struct {
	BaseURL   string
	SharedKey string
}

type Config struct {
	XClientID             string
	XClientSecret         string
	RedditClientID        string
	RedditClientSecret    string
	RedditUserAgent       string
	FacebookClientID      string
	FacebookClientSecret  string
	InstagramClientID     string
	InstagramClientSecret string
	PinterestClientID     string
	PinterestClientSecret string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	R2                    R2
	Nimble                Nimble
	SecretKey             string
	CookieName            string
}

func LoadConfig() *Config {
	return &Config{
		XClientID:             getEnv("X_CLIENT_ID", ""),
		XClientSecret:         getEnv("X_CLIENT_SECRET", ""),
		RedditClientID:        getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret:    getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUserAgent:       getEnv("REDDIT_USER_AGENT", "socialcast/1.0"),
		FacebookClientID:      getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret:  getEnv("FACEBOOK_CLIENT_SECRET", ""),
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		PinterestClientID:     getEnv("PINTEREST_CLIENT_ID", ""),
		PinterestClientSecret: getEnv("PINTEREST_CLIENT_SECRET", ""),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", ""),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Nimble: Nimble{
			BaseURL:   getEnv("NIMBLE_BASE_URL", ""),
			SharedKey: getEnv("NIMBLE_SHARED_KEY", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "socialcast_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
