package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"hiredup/internal/auth"
	"hiredup/internal/config"
	"hiredup/internal/database"
	"hiredup/internal/jobs"
	"hiredup/internal/storage"
)

func main() {
	var (
		email           = flag.String("email", "", "要创建的账号邮箱（database 模式）")
		name            = flag.String("name", "", "账号显示名，默认取邮箱前缀")
		validateCatalog = flag.String("validate-catalog", "", "校验目录文件（.json/.yaml/.yml）并输出统计")
		publishCatalog  = flag.Bool("publish-catalog", false, "校验通过后上传到 MinIO 的 catalog.object")
		dbHost          = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if h := strings.TrimSpace(*dbHost); h != "" {
		cfg.Database.Host = h
	}

	switch {
	case *validateCatalog != "":
		if err := runCatalog(cfg, *validateCatalog, *publishCatalog); err != nil {
			log.Fatal(err)
		}
	case *email != "":
		if err := runCreateUser(cfg, *email, *name); err != nil {
			log.Fatal(err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runCatalog(cfg *config.Config, path string, publish bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	list, err := jobs.Decode(data, jobs.FormatFromName(path))
	if err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	catalog := jobs.NewCatalog(nil)
	kept := catalog.Replace(list)
	fmt.Printf("目录有效：%d 个职位，%d 个分类\n", kept, len(catalog.Categories()))
	if dropped := len(list) - kept; dropped > 0 {
		fmt.Printf("警告：%d 个重复 ID 将被忽略\n", dropped)
	}

	unparsed := 0
	for _, job := range list {
		if _, _, ok := jobs.ParseSalary(job.Salary); !ok {
			unparsed++
		}
	}
	if unparsed > 0 {
		fmt.Printf("提示：%d 个职位的薪资无法解析，薪资筛选时总是放行\n", unparsed)
	}

	if !publish {
		return nil
	}

	client, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}
	object := cfg.Catalog.Object
	if jobs.FormatFromName(object) != jobs.FormatFromName(path) {
		return fmt.Errorf("catalog object %q and file %q use different formats", object, path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	contentType := "application/json"
	if jobs.FormatFromName(path) == jobs.FormatYAML {
		contentType = "application/yaml"
	}
	if _, err := client.UploadFile(ctx, object, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return fmt.Errorf("upload catalog: %w", err)
	}
	fmt.Printf("已上传到 %s/%s\n", cfg.MinIO.Bucket, object)
	return nil
}

func runCreateUser(cfg *config.Config, email, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if name = strings.TrimSpace(name); name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	var existing database.User
	switch err := db.Where("email = ?", email).First(&existing).Error; {
	case err == nil:
		return fmt.Errorf("user %q already exists", email)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query user: %w", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := database.User{Email: email, Name: name, PasswordHash: hashed}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("已创建账号（AUTH_MODE=database 时可登录）：\n")
	fmt.Printf("用户 ID: %d\n", user.ID)
	fmt.Printf("邮箱: %s\n", email)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次。\n")
	return nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
