package main

import (
	"os"
	"time"

	"github.com/leadscout/leadscout-api/internal/config"
	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库连接失败: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin(
		os.Getenv("LS_DEFAULT_ADMIN_USERNAME"),
		os.Getenv("LS_DEFAULT_ADMIN_PASSWORD"),
	); err != nil {
		stdLog.Printf("初始化默认管理员失败: %v", err)
	} else {
		stdLog.Printf("默认管理员就绪")
	}

	seedSystemConfigs(stdLog)
	seedDemoUsers(stdLog)
	seedDemoAgents(stdLog)

	stdLog.Printf("种子数据初始化完成")
}

type stdLogger interface {
	Printf(format string, args ...interface{})
}

// seedSystemConfigs 写入缺省系统配置，已存在的键不覆盖
func seedSystemConfigs(stdLog stdLogger) {
	configs := []models.SystemConfig{
		{
			Key:         constants.ConfigKeyDefaultCommissionRate,
			ValueJSON:   models.JSONDocument(`10`),
			Description: "默认佣金比例（百分比）",
		},
		{
			Key:         constants.ConfigKeyAgentLevels,
			ValueJSON:   models.JSONDocument(`[{"level":1,"rate":10},{"level":2,"rate":5},{"level":3,"rate":2}]`),
			Description: "代理层级结算比例表",
		},
		{
			Key:         constants.ConfigKeyMinWithdrawalAmount,
			ValueJSON:   models.JSONDocument(`100.00`),
			Description: "单笔提现最低金额",
		},
		{
			Key:         constants.ConfigKeyMaxWithdrawalAmount,
			ValueJSON:   models.JSONDocument(`50000.00`),
			Description: "单笔提现最高金额",
		},
		{
			Key:         constants.ConfigKeyWithdrawalFeeRate,
			ValueJSON:   models.JSONDocument(`0`),
			Description: "提现手续费比例（百分比）",
		},
	}

	for _, item := range configs {
		var existing models.SystemConfig
		if err := models.DB.Where("key = ?", item.Key).First(&existing).Error; err == nil {
			stdLog.Printf("系统配置已存在: %s", item.Key)
			continue
		}
		if err := models.DB.Create(&item).Error; err != nil {
			stdLog.Printf("写入系统配置 %s 失败: %v", item.Key, err)
			continue
		}
		stdLog.Printf("写入系统配置: %s", item.Key)
	}
}

// seedDemoUsers 演示用户，默认密码 Demo@2024
func seedDemoUsers(stdLog stdLogger) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Demo@2024"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Printf("生成演示用户密码失败: %v", err)
		return
	}
	now := time.Now()
	users := []models.User{
		{Email: "agent.alpha@example.com", PasswordHash: string(hash), DisplayName: "演示代理甲", Status: constants.UserStatusActive, EmailVerifiedAt: &now},
		{Email: "agent.beta@example.com", PasswordHash: string(hash), DisplayName: "演示代理乙", Status: constants.UserStatusActive, EmailVerifiedAt: &now},
		{Email: "customer@example.com", PasswordHash: string(hash), DisplayName: "演示客户", Status: constants.UserStatusActive, EmailVerifiedAt: &now},
	}
	for _, user := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err == nil {
			stdLog.Printf("用户已存在: %s", user.Email)
			continue
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Printf("创建用户 %s 失败: %v", user.Email, err)
			continue
		}
		stdLog.Printf("创建用户: %s", user.Email)
	}
}

// seedDemoAgents 三级演示代理链，便于联调佣金分账
func seedDemoAgents(stdLog stdLogger) {
	rate := models.NewMoneyFromDecimal(decimal.NewFromInt(12))

	root := ensureAgent(stdLog, models.AgentProfile{
		RealName:       "演示总代",
		Email:          "agent.alpha@example.com",
		AgentCode:      "ROOTDEMO2X",
		Level:          1,
		CommissionRate: &rate,
		AlipayAccount:  "alpha@example.com",
		Status:         constants.AgentStatusActive,
	})
	if root == nil {
		return
	}

	second := ensureAgent(stdLog, models.AgentProfile{
		RealName:      "演示二级代理",
		Email:         "agent.beta@example.com",
		AgentCode:     "BETADEMO3Y",
		ParentAgentID: &root.ID,
		Level:         root.Level + 1,
		AlipayAccount: "beta@example.com",
		Status:        constants.AgentStatusActive,
	})
	if second == nil {
		return
	}

	ensureAgent(stdLog, models.AgentProfile{
		RealName:      "演示三级代理",
		AgentCode:     "GAMMADEMO4",
		ParentAgentID: &second.ID,
		Level:         second.Level + 1,
		Status:        constants.AgentStatusActive,
	})
}

func ensureAgent(stdLog stdLogger, agent models.AgentProfile) *models.AgentProfile {
	var existing models.AgentProfile
	if err := models.DB.Where("agent_code = ?", agent.AgentCode).First(&existing).Error; err == nil {
		stdLog.Printf("代理已存在: %s", agent.AgentCode)
		return &existing
	}
	if err := models.DB.Create(&agent).Error; err != nil {
		stdLog.Printf("创建代理 %s 失败: %v", agent.AgentCode, err)
		return nil
	}
	stdLog.Printf("创建代理: %s (%s)", agent.RealName, agent.AgentCode)
	return &agent
}
