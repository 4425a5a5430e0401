package main

// General API documentation for swaggo. Run `swag init` to regenerate docs.
//
// @title           VoxScribe API
// @version         1.0
// @description     Speech recognition and transcription API backed by Whisper models.
//
// @BasePath  /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
//
// @schemes http
