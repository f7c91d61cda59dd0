package services

import "github.com/marmos91/corevisor/pkg/addons"

// SlugMySQL is the MySQL database service.
const SlugMySQL = "mysql"

// MySQLConfig is the connection data a consumer registers for a MySQL server.
type MySQLConfig struct {
	Host     string `json:"host" validate:"required,hostname_rfc1123|ip"`
	Port     int    `json:"port" validate:"min=1,max=65535"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// NewMySQL creates the mysql service.
func NewMySQL(registry addons.Registry) *Typed[MySQLConfig] {
	return NewTyped[MySQLConfig](SlugMySQL, registry)
}

// Defaults returns the built-in services.
func Defaults(registry addons.Registry) []Service {
	return []Service{NewMQTT(registry), NewMySQL(registry)}
}
