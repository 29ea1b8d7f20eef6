package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
	"github.com/Dountche/esi-edt-backend/internal/repository"
)

// ── 用户模块业务错误 ──

var (
	ErrEmailExists          = errors.New("邮箱已被注册")
	ErrUserSelfDelete       = errors.New("不能删除自己")
	ErrUserSelfRoleChange   = errors.New("不能修改自己的角色")
	ErrStudentClassRequired = errors.New("学生账号必须指定所属班级")
)

// UserService 用户业务接口
type UserService interface {
	CreateUser(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.CreateUserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateUserRequest, callerID string) (*dto.UserResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	ResetPassword(ctx context.Context, id string, callerID string) (*dto.ResetPasswordResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportStudentRow, error)
	ImportStudents(ctx context.Context, classID string, rows []ImportStudentRow, callerID string) (*dto.ImportUserResponse, error)
}

// ImportStudentRow Excel 导入解析后的单行数据
type ImportStudentRow struct {
	Row   int
	Name  string
	Email string
	Phone string
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── CreateUser ──────────────────────

// CreateUser 管理员创建账号，返回一次性临时密码
func (s *userService) CreateUser(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.CreateUserResponse, error) {
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	classID := req.ClassID
	if req.Role == model.RoleStudent {
		if classID == nil || *classID == "" {
			return nil, ErrStudentClassRequired
		}
		if err := s.ensureClass(ctx, *classID); err != nil {
			return nil, err
		}
	} else {
		classID = nil
	}

	tempPassword, hash, err := s.newPassword()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hash,
		Role:         req.Role,
		Phone:        req.Phone,
		ClassID:      classID,
		IsActive:     true,
	}
	user.CreatedBy = &callerID
	user.UpdatedBy = &callerID

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	// 重新加载以获取关联班级
	created, err := s.repo.User.GetByID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	return &dto.CreateUserResponse{
		User:         toUserResponse(created),
		TempPassword: tempPassword,
	}, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	users, total, err := s.repo.User.List(ctx, repository.UserFilter{
		Role:    req.Role,
		ClassID: req.ClassID,
		Keyword: req.Keyword,
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, id string, req *dto.UpdateUserRequest, callerID string) (*dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		if err := s.ensureEmailFree(ctx, *req.Email, id); err != nil {
			return nil, err
		}
		user.Email = strings.ToLower(*req.Email)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil && *req.Role != user.Role {
		if id == callerID {
			return nil, ErrUserSelfRoleChange
		}
		user.Role = *req.Role
	}
	if req.ClassID != nil {
		if err := s.ensureClass(ctx, *req.ClassID); err != nil {
			return nil, err
		}
		user.ClassID = req.ClassID
		user.Class = nil
	}
	if user.Role != model.RoleStudent {
		user.ClassID = nil
		user.Class = nil
	} else if user.ClassID == nil {
		return nil, ErrStudentClassRequired
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedBy = &callerID

	if err := s.repo.User.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, id string, callerID string) error {
	if id == callerID {
		return ErrUserSelfDelete
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	if err := s.repo.User.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, id string, callerID string) (*dto.ResetPasswordResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	tempPassword, hash, err := s.newPassword()
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.UpdatedBy = &callerID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("重置密码失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return &dto.ResetPasswordResponse{TempPassword: tempPassword}, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 500

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（姓名/邮箱）")
	ErrImportBadFile     = errors.New("无法解析Excel文件")
)

// ParseImportFile 解析学生名单 Excel，表头支持中英文列名且列序不限
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportStudentRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["name"] < 0 || colIndex["email"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportStudentRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportStudentRow{
			Row:   i + 1,
			Name:  cellAt(row, colIndex["name"]),
			Email: cellAt(row, colIndex["email"]),
			Phone: cellAt(row, colIndex["phone"]),
		}

		// 跳过全空行
		if item.Name == "" && item.Email == "" && item.Phone == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{"name": -1, "email": -1, "phone": -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "姓名", "name", "nom":
			idx["name"] = i
		case "邮箱", "email", "e-mail":
			idx["email"] = i
		case "电话", "phone", "téléphone":
			idx["phone"] = i
		}
	}
	return idx
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ────────────────────── ImportStudents ──────────────────────

// ImportStudents 批量创建班级学生账号
//
// 第一阶段逐行校验并记录失败原因；第二阶段在单个事务中写入全部通过校验的行。
func (s *userService) ImportStudents(ctx context.Context, classID string, rows []ImportStudentRow, callerID string) (*dto.ImportUserResponse, error) {
	if err := s.ensureClass(ctx, classID); err != nil {
		return nil, err
	}

	resp := &dto.ImportUserResponse{Total: len(rows)}

	type validatedRow struct {
		row      ImportStudentRow
		password string
		hash     string
	}
	var validRows []validatedRow
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		fail := func(reason string) {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row.Row, Reason: reason})
		}

		if row.Name == "" || row.Email == "" {
			fail("必填字段为空")
			continue
		}
		email := strings.ToLower(row.Email)
		if first, dup := seen[email]; dup {
			fail(fmt.Sprintf("邮箱与第 %d 行重复: %s", first, row.Email))
			continue
		}
		if err := s.ensureEmailFree(ctx, email, ""); err != nil {
			if !errors.Is(err, ErrEmailExists) {
				return nil, err
			}
			fail(fmt.Sprintf("邮箱已存在: %s", row.Email))
			continue
		}

		password, hash, err := s.newPassword()
		if err != nil {
			fail("密码生成失败")
			continue
		}
		seen[email] = row.Row
		row.Email = email
		validRows = append(validRows, validatedRow{row: row, password: password, hash: hash})
	}

	if len(validRows) == 0 {
		return resp, nil
	}

	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		for _, vr := range validRows {
			user := &model.User{
				Name:         vr.row.Name,
				Email:        vr.row.Email,
				PasswordHash: vr.hash,
				Role:         model.RoleStudent,
				Phone:        vr.row.Phone,
				ClassID:      &classID,
				IsActive:     true,
			}
			user.CreatedBy = &callerID
			user.UpdatedBy = &callerID

			if err := txRepo.User.Create(ctx, user); err != nil {
				return fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("导入学生失败，事务回滚", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	for _, vr := range validRows {
		resp.Success++
		resp.Accounts = append(resp.Accounts, dto.ImportedAccount{
			Row:          vr.row.Row,
			Email:        vr.row.Email,
			TempPassword: vr.password,
		})
	}

	s.logger.Info("学生名单已导入",
		zap.String("class_id", classID),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *userService) load(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// ensureEmailFree 邮箱未被 selfID 以外的账号占用
func (s *userService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.User.GetByEmail(ctx, email)
	if err == nil {
		if existing.UserID != selfID {
			return ErrEmailExists
		}
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (s *userService) ensureClass(ctx context.Context, classID string) error {
	if _, err := s.repo.Class.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		return err
	}
	return nil
}

// newPassword 生成临时密码及其 bcrypt 哈希
func (s *userService) newPassword() (string, string, error) {
	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return "", "", err
	}
	return tempPassword, string(hash), nil
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 4 {
		length = 8
	}

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	result := make([]byte, length)
	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}

	return string(result), nil
}
