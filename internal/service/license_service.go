package service

import (
	"strings"
	"time"

	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/repository"
	"gorm.io/gorm"
)

// LicenseService 软件授权业务服务
type LicenseService struct {
	repo  repository.LicenseRepository
	plans *PlanCatalog
}

// NewLicenseService 创建授权服务
func NewLicenseService(repo repository.LicenseRepository, plans *PlanCatalog) *LicenseService {
	if plans == nil {
		plans = NewPlanCatalog(nil)
	}
	return &LicenseService{repo: repo, plans: plans}
}

// LicenseGenerateInput 授权签发输入
type LicenseGenerateInput struct {
	PlanID         string
	CustomerEmail  string
	OrderID        *uint
	MaxActivations int
}

// LicenseValidateResult 授权校验结果
type LicenseValidateResult struct {
	LicenseKey      string     `json:"licenseKey"`
	PlanID          string     `json:"planId"`
	Status          string     `json:"status"`
	MachineID       string     `json:"machineId,omitempty"`
	ActivationCount int        `json:"activationCount"`
	MaxActivations  int        `json:"maxActivations"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// Generate 签发授权码。授权码格式 LS-XXXX-XXXX-XXXX-XXXX，最多尝试
// 10 次生成唯一编码，全部冲突时返回描述性失败。
func (s *LicenseService) Generate(input LicenseGenerateInput) (*models.License, error) {
	plan, ok := s.plans.Get(input.PlanID)
	if !ok {
		return nil, ErrPlanInvalid
	}
	email := strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	if email == "" {
		return nil, ErrInvalidAction
	}
	maxActivations := input.MaxActivations
	if maxActivations <= 0 {
		maxActivations = plan.MaxActivations
	}

	for attempt := 0; attempt < constants.CodeMaxAttempts; attempt++ {
		key, err := buildLicenseKey()
		if err != nil {
			return nil, err
		}
		exists, err := s.repo.ExistsByKey(key)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		license := &models.License{
			LicenseKey:     key,
			PlanID:         plan.ID,
			CustomerEmail:  email,
			OrderID:        input.OrderID,
			Status:         constants.LicenseStatusUnused,
			MaxActivations: maxActivations,
		}
		if err := s.repo.Create(license); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return license, nil
	}
	logger.Errorw("license_key_generate_exhausted", "plan_id", plan.ID, "email", email)
	return nil, ErrLicenseKeyExhausted
}

// Validate 校验授权码。只读检查授权是否可用，不改变激活状态。
func (s *LicenseService) Validate(key, machineID string) (*LicenseValidateResult, error) {
	license, err := s.repo.GetByKey(strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, ErrLicenseNotFound
	}
	if license.Status == constants.LicenseStatusRevoked {
		return nil, ErrLicenseRevoked
	}
	if license.Status == constants.LicenseStatusExpired || license.IsExpired(time.Now()) {
		return nil, ErrLicenseExpired
	}
	machineID = strings.TrimSpace(machineID)
	if machineID != "" && license.MachineID != "" && license.MachineID != machineID {
		return nil, ErrLicenseMachineMismatch
	}
	return licenseResult(license), nil
}

// Activate 激活授权并绑定机器。同机重复激活幂等返回；换机视为一次
// 新激活，超出 max_activations 时拒绝。首次激活按套餐时长设定到期。
func (s *LicenseService) Activate(key, machineID string) (*LicenseValidateResult, error) {
	key = strings.TrimSpace(key)
	machineID = strings.TrimSpace(machineID)
	if key == "" || machineID == "" {
		return nil, ErrInvalidAction
	}

	var activated *models.License
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		repoTx := s.repo.WithTx(tx)
		license, err := repoTx.GetByKeyForUpdate(key)
		if err != nil {
			return err
		}
		if license == nil {
			return ErrLicenseNotFound
		}
		if license.Status == constants.LicenseStatusRevoked {
			return ErrLicenseRevoked
		}
		now := time.Now()
		if license.Status == constants.LicenseStatusExpired || license.IsExpired(now) {
			return ErrLicenseExpired
		}
		if license.MachineID == machineID {
			activated = license
			return nil
		}
		if license.ActivationCount >= license.MaxActivations {
			return ErrLicenseActivationLimit
		}

		license.MachineID = machineID
		license.ActivationCount++
		license.Status = constants.LicenseStatusActive
		if license.ActivatedAt == nil {
			license.ActivatedAt = &now
			if plan, ok := s.plans.Get(license.PlanID); ok && plan.DurationDays > 0 {
				expiresAt := now.AddDate(0, 0, plan.DurationDays)
				license.ExpiresAt = &expiresAt
			}
		}
		if err := repoTx.Update(license); err != nil {
			return err
		}
		activated = license
		return nil
	})
	if err != nil {
		return nil, err
	}
	return licenseResult(activated), nil
}

// Revoke 管理端吊销授权
func (s *LicenseService) Revoke(id uint) (*models.License, error) {
	license, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, ErrLicenseNotFound
	}
	if license.Status == constants.LicenseStatusRevoked {
		return license, nil
	}
	license.Status = constants.LicenseStatusRevoked
	if err := s.repo.Update(license); err != nil {
		return nil, err
	}
	return license, nil
}

// GetByID 获取授权详情
func (s *LicenseService) GetByID(id uint) (*models.License, error) {
	license, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, ErrLicenseNotFound
	}
	return license, nil
}

// List 分页查询授权
func (s *LicenseService) List(filter repository.LicenseListFilter) ([]models.License, int64, error) {
	return s.repo.List(filter)
}

// buildLicenseKey 生成 LS-XXXX-XXXX-XXXX-XXXX 形式的授权码
func buildLicenseKey() (string, error) {
	groups := make([]string, 0, constants.LicenseKeyGroups+1)
	groups = append(groups, constants.LicenseKeyPrefix)
	for i := 0; i < constants.LicenseKeyGroups; i++ {
		group, err := generateRandomCode(constants.LicenseKeyGroupSize)
		if err != nil {
			return "", err
		}
		groups = append(groups, group)
	}
	return strings.Join(groups, "-"), nil
}

func licenseResult(license *models.License) *LicenseValidateResult {
	return &LicenseValidateResult{
		LicenseKey:      license.LicenseKey,
		PlanID:          license.PlanID,
		Status:          license.Status,
		MachineID:       license.MachineID,
		ActivationCount: license.ActivationCount,
		MaxActivations:  license.MaxActivations,
		ExpiresAt:       license.ExpiresAt,
	}
}
