// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// ピックアップAPI向けのBasic認証、内部API向けのサービス間JWT認証、
// パニックリカバリ、CORS設定を含む。
package middleware
