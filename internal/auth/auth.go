// Package auth 管理员身份：白名单手机号 + WhatsApp OTP 登录，签发带过期时间的 JWT。
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/notify"
	"github.com/d60-Lab/cakeshop/pkg/logger"
)

var (
	ErrNotAllowed    = errors.New("mobile number not registered")
	ErrInvalidOTP    = errors.New("invalid or expired otp")
	ErrInvalidToken  = errors.New("invalid admin token")
	ErrNotConfigured = errors.New("admin login not configured")
)

const otpDigits = 6

// Claims 管理员 token 载荷
type Claims struct {
	Mobile string `json:"mobile"`
	jwt.RegisteredClaims
}

// Service OTP 下发、校验与 token 签发
type Service struct {
	allowed     map[string]struct{}
	countryCode string
	secret      []byte
	tokenTTL    time.Duration
	otpTTL      time.Duration
	store       OTPStore
	sender      notify.Messenger
	now         func() time.Time
	generate    func() (string, error)
}

func NewService(cfg config.AdminConfig, store OTPStore, sender notify.Messenger) *Service {
	s := &Service{
		allowed:     make(map[string]struct{}, len(cfg.Mobiles)),
		countryCode: cfg.CountryCode,
		secret:      []byte(cfg.JWTSecret),
		tokenTTL:    cfg.TokenTTL,
		otpTTL:      cfg.OTPTTL,
		store:       store,
		sender:      sender,
		now:         time.Now,
		generate:    generateOTP,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = 12 * time.Hour
	}
	if s.otpTTL <= 0 {
		s.otpTTL = 5 * time.Minute
	}
	for _, m := range cfg.Mobiles {
		if n := s.Normalize(m); n != "" {
			s.allowed[n] = struct{}{}
		}
	}
	return s
}

// Normalize 只保留数字，去掉国家码前缀
func (s *Service) Normalize(mobile string) string {
	var b strings.Builder
	for _, r := range mobile {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if s.countryCode != "" && len(digits) > 10 && strings.HasPrefix(digits, s.countryCode) {
		digits = strings.TrimPrefix(digits, s.countryCode)
	}
	return digits
}

// Allowed 是否在白名单中
func (s *Service) Allowed(mobile string) bool {
	_, ok := s.allowed[s.Normalize(mobile)]
	return ok
}

// SendOTP 生成 OTP，哈希后保存并通过 WhatsApp 发送
func (s *Service) SendOTP(ctx context.Context, mobile string) error {
	m := s.Normalize(mobile)
	if _, ok := s.allowed[m]; !ok {
		return ErrNotAllowed
	}
	otp, err := s.generate()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, m, string(hash), s.otpTTL); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	body := fmt.Sprintf("Admin login OTP: %s. This code is valid for %d minutes. Do not share this code with anyone.",
		otp, int(s.otpTTL.Minutes()))
	if _, err := s.sender.SendMessage(ctx, "+"+s.countryCode+m, body); err != nil {
		_ = s.store.Delete(ctx, m)
		logger.Error("send otp failed", zap.String("mobile", mask(m)), zap.Error(err))
		return fmt.Errorf("send otp: %w", err)
	}
	logger.Info("otp sent", zap.String("mobile", mask(m)))
	return nil
}

// Login 校验 OTP（一次性）并签发 token
func (s *Service) Login(ctx context.Context, mobile, otp string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrNotConfigured
	}
	m := s.Normalize(mobile)
	if _, ok := s.allowed[m]; !ok {
		return "", time.Time{}, ErrNotAllowed
	}
	hash, err := s.store.Load(ctx, m)
	if errors.Is(err, errOTPMissing) {
		return "", time.Time{}, ErrInvalidOTP
	}
	if err != nil {
		return "", time.Time{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(otp))) != nil {
		return "", time.Time{}, ErrInvalidOTP
	}
	_ = s.store.Delete(ctx, m)
	return s.IssueToken(m)
}

// IssueToken HS256 签名
func (s *Service) IssueToken(mobile string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrNotConfigured
	}
	now := s.now()
	expires := now.Add(s.tokenTTL)
	claims := Claims{
		Mobile: mobile,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// ParseToken 校验签名、过期时间，并要求手机号仍在白名单中
func (s *Service) ParseToken(token string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrNotConfigured
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, ok := s.allowed[claims.Mobile]; !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()+100000), nil
}

// mask 日志中只保留后四位
func mask(m string) string {
	if len(m) <= 4 {
		return m
	}
	return strings.Repeat("*", len(m)-4) + m[len(m)-4:]
}
