// Package httpclient はJSON APIを呼び出すHTTPクライアントを提供する。
//
// relayがpickupサービスのピックアップAPIを呼び出す際に使用する。
// 認証ヘッダーなど全リクエスト共通のヘッダーと、成功とみなすステータスコードを
// オプションで設定できる。
package httpclient
