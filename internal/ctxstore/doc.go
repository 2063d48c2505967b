// Package ctxstore содержит Context Store — механизм передачи
// небольших значений между стадиями run.
//
// Контракт жёстче привычного "кросс-задачного" обмена значениями:
//   - запись write-once: повторная запись ключа — ошибка
//   - чтение разрешено только у транзитивного предшественника
//   - чтение незаписанного ключа — явная ошибка, а не пустое значение
//
// Store живёт в рамках одного run и уничтожается вместе с ним.
package ctxstore
