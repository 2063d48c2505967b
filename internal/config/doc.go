// Package config собирает настройки оркестратора из переменных
// окружения и хранит умолчания конвейера релиза.
//
// Настройки читаются один раз при старте процесса; стадии конвейера
// окружение не читают — все параметры передаются явно через RunConfig
// и Settings при построении графа.
package config
