package config

import "strconv"

type CaptchaConfig interface {
	GetCaptchaProvider() string
	GetCaptchaSecret() string
	GetCaptchaMinScore() float64
}

type Captcha struct{}

var _ CaptchaConfig = Captcha{}

// GetCaptchaProvider returns "hcaptcha", "recaptcha" or "" (gate disabled).
func (Captcha) GetCaptchaProvider() string {
	return GetEnv("CAPTCHA_PROVIDER", "")
}

func (Captcha) GetCaptchaSecret() string {
	return GetEnv("CAPTCHA_SECRET", "")
}

func (Captcha) GetCaptchaMinScore() float64 {
	value := GetEnv("CAPTCHA_MIN_SCORE", "")
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
