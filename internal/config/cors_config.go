package config

type Cors struct{}

var _ CorsConfig = Cors{}

func (Cors) GetAllowedOrigins() []string {
	origins := splitEnvList("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}

func (Cors) GetAllowedMethods() []string {
	return []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
}

func (Cors) GetAllowedHeaders() []string {
	return []string{"Content-Type", "Authorization", "X-Csrf-Token", "X-Captcha-Token"}
}
