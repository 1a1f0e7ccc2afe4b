package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"carva/internal/auth"
	"carva/internal/domain"
	"carva/internal/geo"
	"carva/internal/repository"
)

const (
	defaultStartingBalance = 500
	minPasswordLength      = 8
	newWorkshopRating      = 5.0
	newWorkshopDistance    = 2.0
	joinDateLayout         = "2006-01-02"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AccountService handles signup, login, garage and inbox operations.
type AccountService struct {
	accounts        repository.AccountRepository
	workshops       repository.WorkshopRepository
	tokens          *auth.TokenIssuer
	notifier        *NotificationService
	otpCode         string
	startingBalance int
	logger          *slog.Logger

	now func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	accounts repository.AccountRepository,
	workshops repository.WorkshopRepository,
	tokens *auth.TokenIssuer,
	notifier *NotificationService,
	otpCode string,
	startingBalance int,
	logger *slog.Logger,
) *AccountService {
	if startingBalance <= 0 {
		startingBalance = defaultStartingBalance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		accounts:        accounts,
		workshops:       workshops,
		tokens:          tokens,
		notifier:        notifier,
		otpCode:         otpCode,
		startingBalance: startingBalance,
		logger:          logger,
		now:             time.Now,
	}
}

// SignupRequest contains the parameters for creating an account.
type SignupRequest struct {
	Name            string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
	OTP             string

	FlatbedPlate string

	WorkshopPhone    string
	WorkshopLat      *float64
	WorkshopLng      *float64
	LocationEn       string
	LocationAr       string
	CommercialReg    string
	MunicipalLicense string
}

// Session is the result of a successful signup or login.
type Session struct {
	Token   string
	Account *domain.Account
}

// Signup validates the form, creates the account with its starting wallet
// and, for workshop accounts, registers the workshop as a destination.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	role, err := s.validateSignup(&req)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acc := &domain.Account{
		Name:          req.Name,
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		Role:          role,
		JoinDate:      now.Format(joinDateLayout),
		WalletBalance: s.startingBalance,
		Notifications: []domain.Notification{},
		CreatedAt:     now,
	}
	switch role {
	case domain.RoleOwner:
		acc.Owner = &domain.OwnerProfile{Garage: []domain.Car{}}
	case domain.RoleDriver:
		acc.Driver = &domain.DriverProfile{FlatbedPlate: req.FlatbedPlate}
	case domain.RoleWorkshop:
		acc.Workshop = &domain.WorkshopProfile{
			WorkshopPhone:    req.WorkshopPhone,
			WorkshopLat:      *req.WorkshopLat,
			WorkshopLng:      *req.WorkshopLng,
			CommercialReg:    req.CommercialReg,
			MunicipalLicense: req.MunicipalLicense,
		}
	}

	switch err := s.accounts.Create(ctx, acc); err {
	case nil:
	case repository.ErrDuplicateUsername:
		return nil, ErrUsernameTaken
	case repository.ErrDuplicateEmail:
		return nil, ErrEmailTaken
	default:
		return nil, err
	}

	if role == domain.RoleWorkshop {
		if err := s.registerWorkshop(ctx, acc, req); err != nil {
			return nil, err
		}
	}

	s.logger.Info("account created", "username", acc.Username, "role", acc.Role)
	s.notifier.Notify(ctx, acc.Username, TitleWelcome,
		fmt.Sprintf("Welcome %s! Your wallet starts with %d.", acc.Name, acc.WalletBalance))

	return s.session(ctx, acc.Username)
}

// Login authenticates by username or email.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrMissingFields
	}

	acc, err := s.accounts.GetByLogin(ctx, identifier)
	if err == repository.ErrNotFound {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(password, acc.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("login", "username", acc.Username, "role", acc.Role)
	return s.session(ctx, acc.Username)
}

// Profile returns an account.
func (s *AccountService) Profile(ctx context.Context, username string) (*domain.Account, error) {
	acc, err := s.accounts.GetByUsername(ctx, username)
	if err == repository.ErrNotFound {
		return nil, ErrAccountNotFound
	}
	return acc, err
}

// CarInput contains the editable fields of a garage entry.
type CarInput struct {
	NameEn string
	NameAr string
	Year   int
	Color  string
	Plate  string
	Photo  string
}

// AddCar appends a car to an owner's garage. Plates are unique across all
// garages.
func (s *AccountService) AddCar(ctx context.Context, username string, in CarInput) (*domain.Car, error) {
	if err := validateCar(in); err != nil {
		return nil, err
	}
	if err := s.checkPlate(ctx, in.Plate, username, 0); err != nil {
		return nil, err
	}

	car := domain.Car{
		ID:     s.now().UnixMilli(),
		NameEn: strings.TrimSpace(in.NameEn),
		NameAr: strings.TrimSpace(in.NameAr),
		Year:   in.Year,
		Color:  strings.TrimSpace(in.Color),
		Plate:  strings.TrimSpace(in.Plate),
		Photo:  in.Photo,
	}
	if car.NameAr == "" {
		car.NameAr = car.NameEn
	}

	_, err := s.updateOwner(ctx, username, func(profile *domain.OwnerProfile) error {
		for _, existing := range profile.Garage {
			if existing.ID >= car.ID {
				car.ID = existing.ID + 1
			}
		}
		profile.Garage = append(profile.Garage, car)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &car, nil
}

// UpdateCar edits a car in the owner's garage.
func (s *AccountService) UpdateCar(ctx context.Context, username string, carID int64, in CarInput) (*domain.Car, error) {
	if err := validateCar(in); err != nil {
		return nil, err
	}
	if err := s.checkPlate(ctx, in.Plate, username, carID); err != nil {
		return nil, err
	}

	var updated domain.Car
	_, err := s.updateOwner(ctx, username, func(profile *domain.OwnerProfile) error {
		for i := range profile.Garage {
			car := &profile.Garage[i]
			if car.ID != carID {
				continue
			}
			car.NameEn = strings.TrimSpace(in.NameEn)
			if nameAr := strings.TrimSpace(in.NameAr); nameAr != "" {
				car.NameAr = nameAr
			}
			car.Year = in.Year
			car.Color = strings.TrimSpace(in.Color)
			car.Plate = strings.TrimSpace(in.Plate)
			if in.Photo != "" {
				car.Photo = in.Photo
			}
			updated = *car
			return nil
		}
		return ErrCarNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCar removes a car from the owner's garage.
func (s *AccountService) DeleteCar(ctx context.Context, username string, carID int64) error {
	_, err := s.updateOwner(ctx, username, func(profile *domain.OwnerProfile) error {
		for i, car := range profile.Garage {
			if car.ID == carID {
				profile.Garage = append(profile.Garage[:i], profile.Garage[i+1:]...)
				return nil
			}
		}
		return ErrCarNotFound
	})
	return err
}

// MarkNotificationRead flags one inbox entry as read.
func (s *AccountService) MarkNotificationRead(ctx context.Context, username string, id int64) error {
	return s.editInbox(ctx, username, func(notifs []domain.Notification) ([]domain.Notification, error) {
		for i := range notifs {
			if notifs[i].ID == id {
				notifs[i].Read = true
				return notifs, nil
			}
		}
		return nil, ErrNotificationNotFound
	})
}

// MarkAllNotificationsRead flags every inbox entry as read.
func (s *AccountService) MarkAllNotificationsRead(ctx context.Context, username string) error {
	return s.editInbox(ctx, username, func(notifs []domain.Notification) ([]domain.Notification, error) {
		for i := range notifs {
			notifs[i].Read = true
		}
		return notifs, nil
	})
}

// DeleteNotification removes one inbox entry.
func (s *AccountService) DeleteNotification(ctx context.Context, username string, id int64) error {
	return s.editInbox(ctx, username, func(notifs []domain.Notification) ([]domain.Notification, error) {
		for i := range notifs {
			if notifs[i].ID == id {
				return append(notifs[:i], notifs[i+1:]...), nil
			}
		}
		return nil, ErrNotificationNotFound
	})
}

func (s *AccountService) validateSignup(req *SignupRequest) (domain.Role, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return "", ErrInvalidRole
	}

	if req.Name == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return "", ErrMissingFields
	}
	if role == domain.RoleWorkshop {
		if strings.TrimSpace(req.WorkshopPhone) == "" || req.WorkshopLat == nil || req.WorkshopLng == nil {
			return "", ErrMissingFields
		}
		if !geo.ValidLatitude(*req.WorkshopLat) || !geo.ValidLongitude(*req.WorkshopLng) {
			return "", ErrInvalidLocation
		}
		// Workshops sign in with their email when no username is given.
		if req.Username == "" {
			req.Username = req.Email
		}
	} else if req.Username == "" {
		return "", ErrMissingFields
	}

	if !emailPattern.MatchString(req.Email) {
		return "", ErrInvalidEmail
	}
	if !strongPassword(req.Password) {
		return "", ErrWeakPassword
	}
	if req.Password != req.ConfirmPassword {
		return "", ErrPasswordMismatch
	}
	if req.OTP != s.otpCode {
		return "", ErrInvalidOTP
	}
	return role, nil
}

func (s *AccountService) registerWorkshop(ctx context.Context, acc *domain.Account, req SignupRequest) error {
	existing, err := s.workshops.List(ctx)
	if err != nil {
		return err
	}
	var maxID int64
	for _, ws := range existing {
		if ws.ID > maxID {
			maxID = ws.ID
		}
	}

	lat, lng := *req.WorkshopLat, *req.WorkshopLng
	ws := &domain.Workshop{
		ID:            maxID + 1,
		NameEn:        acc.Name,
		NameAr:        acc.Name,
		LocationEn:    req.LocationEn,
		LocationAr:    req.LocationAr,
		Rating:        newWorkshopRating,
		Distance:      newWorkshopDistance,
		Lat:           &lat,
		Lng:           &lng,
		OwnerUsername: acc.Username,
	}
	for attempt := 1; ; attempt++ {
		err = s.workshops.Create(ctx, ws)
		if err != repository.ErrDuplicateID || attempt == maxCreateAttempts {
			break
		}
		ws.ID++
	}
	if err != nil {
		return err
	}

	s.logger.Info("workshop registered", "workshop_id", ws.ID, "owner", acc.Username)
	return nil
}

func (s *AccountService) session(ctx context.Context, username string) (*Session, error) {
	acc, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Generate(acc.Username, acc.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Account: acc}, nil
}

// checkPlate rejects a plate already registered to any car other than
// (owner, exceptID).
func (s *AccountService) checkPlate(ctx context.Context, plate, owner string, exceptID int64) error {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return err
	}
	plate = strings.TrimSpace(plate)
	for _, acc := range accounts {
		if acc.Owner == nil {
			continue
		}
		for _, car := range acc.Owner.Garage {
			if !strings.EqualFold(car.Plate, plate) {
				continue
			}
			if acc.Username == owner && car.ID == exceptID {
				continue
			}
			return ErrPlateRegistered
		}
	}
	return nil
}

func (s *AccountService) updateOwner(ctx context.Context, username string, fn func(*domain.OwnerProfile) error) (*domain.Account, error) {
	acc, err := s.accounts.Update(ctx, username, func(acc *domain.Account) error {
		if acc.Role != domain.RoleOwner {
			return ErrForbidden
		}
		if acc.Owner == nil {
			acc.Owner = &domain.OwnerProfile{}
		}
		return fn(acc.Owner)
	})
	if err == repository.ErrNotFound {
		return nil, ErrAccountNotFound
	}
	return acc, err
}

func (s *AccountService) editInbox(ctx context.Context, username string, fn func([]domain.Notification) ([]domain.Notification, error)) error {
	_, err := s.accounts.Update(ctx, username, func(acc *domain.Account) error {
		notifs, err := fn(acc.Notifications)
		if err != nil {
			return err
		}
		acc.Notifications = notifs
		return nil
	})
	if err == repository.ErrNotFound {
		return ErrAccountNotFound
	}
	return err
}

func validateCar(in CarInput) error {
	if strings.TrimSpace(in.NameEn) == "" || in.Year == 0 ||
		strings.TrimSpace(in.Color) == "" || strings.TrimSpace(in.Plate) == "" {
		return ErrMissingFields
	}
	return nil
}

func strongPassword(p string) bool {
	if len(p) < minPasswordLength {
		return false
	}
	var upper, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && digit
}
