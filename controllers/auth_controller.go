package controllers

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	config "github.com/dquevedo/aportaciones-go/config"
	models "github.com/dquevedo/aportaciones-go/models"
	utils "github.com/dquevedo/aportaciones-go/utils"
)

const otpTTL = 5 * time.Minute

func issueToken(cfg *config.Config, user models.User, ttl time.Duration, typ string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID.Hex(),
		"name": user.Name,
		"role": user.Role,
		"typ":  typ,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func tokenResponse(cfg *config.Config, user models.User) (gin.H, error) {
	access, err := issueToken(cfg, user, 24*time.Hour, "access")
	if err != nil {
		return nil, err
	}
	refresh, err := issueToken(cfg, user, 7*24*time.Hour, "refresh")
	if err != nil {
		return nil, err
	}
	return gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	}, nil
}

// ---------------- REGISTER ----------------
func Register(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name     string `json:"name" binding:"required"`
			Phone    string `json:"phone" binding:"required"`
			Password string `json:"password" binding:"required,min=8"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		col := cfg.Collection("users")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		count, err := col.CountDocuments(ctx, bson.M{"phone": input.Phone})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check existing users"})
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "phone already registered"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
			return
		}

		now := time.Now()
		user := models.User{
			ID:           primitive.NewObjectID(),
			Name:         input.Name,
			Phone:        input.Phone,
			PasswordHash: string(hash),
			Role:         "treasurer",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := col.InsertOne(ctx, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
			return
		}

		resp, err := tokenResponse(cfg, user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// ---------------- LOGIN ----------------
func Login(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Phone    string `json:"phone" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var user models.User
		err := cfg.Collection("users").FindOne(ctx, bson.M{"phone": input.Phone}).Decode(&user)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		resp, err := tokenResponse(cfg, user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ---------------- REFRESH ----------------
func RefreshToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(input.RefreshToken, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		if typ, _ := claims["typ"].(string); typ != "refresh" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not a refresh token"})
			return
		}

		sub, _ := claims["sub"].(string)
		uid, err := primitive.ObjectIDFromHex(sub)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := cfg.Collection("users").FindOne(ctx, bson.M{"_id": uid}).Decode(&user); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		resp, err := tokenResponse(cfg, user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ---------------- REQUEST OTP ----------------
func RequestOTP(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Phone string `json:"phone" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		count, err := cfg.Collection("users").CountDocuments(ctx, bson.M{"phone": input.Phone})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not look up phone"})
			return
		}
		if count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "phone not registered"})
			return
		}

		n, err := rand.Int(rand.Reader, big.NewInt(1000000))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate code"})
			return
		}
		code := fmt.Sprintf("%06d", n.Int64())

		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store code"})
			return
		}

		challenge := models.OTPChallenge{
			ID:        primitive.NewObjectID(),
			Phone:     input.Phone,
			CodeHash:  string(hash),
			ExpiresAt: time.Now().Add(otpTTL),
			CreatedAt: time.Now(),
		}
		if _, err := cfg.Collection("otp_challenges").InsertOne(ctx, challenge); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store code"})
			return
		}

		if err := utils.SendSMS(input.Phone, "Your login code is "+code); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not deliver code"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "code sent"})
	}
}

// ---------------- VERIFY OTP ----------------
func VerifyOTP(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Phone string `json:"phone" binding:"required"`
			Code  string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Most recent unexpired, unused challenge for this phone.
		opts := options.FindOne().SetSort(bson.M{"created_at": -1})
		var challenge models.OTPChallenge
		err := cfg.Collection("otp_challenges").FindOne(ctx, bson.M{
			"phone":      input.Phone,
			"used":       false,
			"expires_at": bson.M{"$gt": time.Now()},
		}, opts).Decode(&challenge)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no valid code for this phone"})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(input.Code)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect code"})
			return
		}

		if _, err := cfg.Collection("otp_challenges").UpdateOne(ctx,
			bson.M{"_id": challenge.ID},
			bson.M{"$set": bson.M{"used": true}},
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not consume code"})
			return
		}

		var user models.User
		if err := cfg.Collection("users").FindOne(ctx, bson.M{"phone": input.Phone}).Decode(&user); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		resp, err := tokenResponse(cfg, user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
