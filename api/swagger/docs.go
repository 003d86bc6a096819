package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Nova API",
        "description": "API de evaluación de proyectos formativos",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Autenticación y sesiones"},
        {"name": "Usuarios", "description": "Gestión de usuarios y roles"},
        {"name": "Proyectos", "description": "Proyectos formativos"},
        {"name": "Evaluaciones", "description": "Ciclo de vida de evaluaciones"},
        {"name": "Calificaciones", "description": "Calificaciones por criterio"},
        {"name": "Asignaciones", "description": "Asignaciones evaluador/estudiante"},
        {"name": "Certificados", "description": "Emisión y verificación de certificados"},
        {"name": "Fichas", "description": "Fichas de formación"},
        {"name": "Notificaciones", "description": "Notificaciones de usuario"},
        {"name": "Historial", "description": "Auditoría de acciones"},
        {"name": "Reportes", "description": "Reportes y exportación"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Iniciar sesión",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Credenciales inválidas"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Renovar tokens",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Token inválido"}
                }
            }
        },
        "/usuarios": {
            "get": {
                "tags": ["Usuarios"],
                "security": [{"BearerAuth": []}],
                "summary": "Listar usuarios",
                "parameters": [
                    {"name": "rol", "in": "query", "type": "string"},
                    {"name": "activo", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Usuarios"],
                "security": [{"BearerAuth": []}],
                "summary": "Crear usuario",
                "responses": {
                    "201": {"description": "Creado", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Correo duplicado"}
                }
            }
        },
        "/usuarios/{id}": {
            "get": {
                "tags": ["Usuarios"],
                "security": [{"BearerAuth": []}],
                "summary": "Obtener usuario",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No encontrado"}
                }
            }
        },
        "/proyectos": {
            "get": {
                "tags": ["Proyectos"],
                "security": [{"BearerAuth": []}],
                "summary": "Listar proyectos",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Proyectos"],
                "security": [{"BearerAuth": []}],
                "summary": "Crear proyecto",
                "responses": {
                    "201": {"description": "Creado", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evaluaciones": {
            "get": {
                "tags": ["Evaluaciones"],
                "security": [{"BearerAuth": []}],
                "summary": "Listar evaluaciones",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Evaluaciones"],
                "security": [{"BearerAuth": []}],
                "summary": "Crear evaluación",
                "responses": {
                    "201": {"description": "Creada", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/evaluaciones/{id}/estado": {
            "patch": {
                "tags": ["Evaluaciones"],
                "security": [{"BearerAuth": []}],
                "summary": "Cambiar estado de una evaluación",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Transición inválida"}
                }
            }
        },
        "/calificaciones": {
            "post": {
                "tags": ["Calificaciones"],
                "security": [{"BearerAuth": []}],
                "summary": "Registrar calificación",
                "responses": {
                    "201": {"description": "Creada", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Criterio duplicado"}
                }
            }
        },
        "/certificados/verificar": {
            "post": {
                "tags": ["Certificados"],
                "summary": "Verificar certificado por número",
                "responses": {
                    "200": {"description": "Resultado de verificación", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reportes/general": {
            "get": {
                "tags": ["Reportes"],
                "security": [{"BearerAuth": []}],
                "summary": "Reporte general de la plataforma",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["correo", "password"],
            "properties": {
                "correo": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
