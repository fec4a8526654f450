package service

import (
	"errors"
	"log"
	"path"
	"strings"

	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/model/dto"
	"github.com/planhub/planhub_go_server/internal/pkg/oss"
	"github.com/planhub/planhub_go_server/internal/repository"
)

var (
	ErrAvatarTooLarge    = errors.New("头像文件过大")
	ErrUnsupportedAvatar = errors.New("不支持的图片格式")
	ErrStorageDisabled   = errors.New("文件存储未配置")
)

const maxAvatarSize = 2 << 20 // 2MB

var allowedAvatarExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type UserService struct {
	userRepo  *repository.UserRepository
	ossClient *oss.Client
}

func NewUserService(userRepo *repository.UserRepository, ossClient *oss.Client) *UserService {
	return &UserService{
		userRepo:  userRepo,
		ossClient: ossClient,
	}
}

// UpdateProfile 更新用户资料，只更新请求中出现的字段
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*model.User, error) {
	fields := make(map[string]interface{})

	if req.Username != nil {
		existing, err := s.userRepo.GetByUsername(*req.Username)
		if err == nil && existing.ID != userID {
			return nil, ErrUsernameExists
		}
		fields["username"] = *req.Username
	}
	if req.Timezone != nil {
		fields["timezone"] = *req.Timezone
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(userID, fields); err != nil {
			return nil, err
		}
	}

	return s.userRepo.GetByID(userID)
}

// UploadAvatar 上传头像到 OSS 并更新用户记录
func (s *UserService) UploadAvatar(userID int64, filename string, data []byte) (string, error) {
	if len(data) > maxAvatarSize {
		return "", ErrAvatarTooLarge
	}

	ext := strings.ToLower(path.Ext(filename))
	if !allowedAvatarExts[ext] {
		return "", ErrUnsupportedAvatar
	}

	if s.ossClient == nil {
		return "", ErrStorageDisabled
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return "", err
	}

	url, err := s.ossClient.UploadAvatar(userID, data, ext)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.UpdateFields(userID, map[string]interface{}{"avatar_url": url}); err != nil {
		return "", err
	}

	// 旧头像清理失败不影响本次上传
	if user.AvatarURL != "" {
		if key := s.ossClient.ExtractObjectKey(user.AvatarURL); key != "" {
			if err := s.ossClient.Delete(key); err != nil {
				log.Printf("Failed to delete old avatar for user %d: %v", userID, err)
			}
		}
	}

	return url, nil
}

// SearchUsers 按用户名前缀搜索用户
func (s *UserService) SearchUsers(keyword string, limit int) ([]*dto.MessageUser, error) {
	if limit <= 0 || limit > 20 {
		limit = 20
	}

	users, err := s.userRepo.SearchByUsername(keyword, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.MessageUser, 0, len(users))
	for _, u := range users {
		items = append(items, &dto.MessageUser{
			ID:        u.ID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
		})
	}
	return items, nil
}
