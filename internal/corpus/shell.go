package corpus

import (
	"fmt"
	"strings"
)

// ShellFamilies returns the built-in bash corpus grouped into four
// command families.
func ShellFamilies() []Tool {
	return []Tool{
		{
			Name:        "filesystem",
			Category:    "filesystem",
			Description: "File and directory management",
			Commands: []Command{
				{Cmd: "ls -la", Desc: "Listar archivos detalladamente", Cat: "listing"},
				{Cmd: "cd /home/user", Desc: "Cambiar directorio", Cat: "navigation"},
				{Cmd: "pwd", Desc: "Mostrar directorio actual", Cat: "navigation"},
				{Cmd: "mkdir -p dir/subdir", Desc: "Crear directorios recursivamente", Cat: "creation"},
				{Cmd: "rm -rf directory", Desc: "Eliminar directorio recursivamente", Cat: "deletion"},
				{Cmd: "cp file.txt backup.txt", Desc: "Copiar archivo", Cat: "file_operations"},
				{Cmd: "mv oldname.txt newname.txt", Desc: "Renombrar archivo", Cat: "file_operations"},
				{Cmd: "find / -name '*.log' -mtime -1", Desc: "Buscar archivos recientes", Cat: "search"},
				{Cmd: "du -sh /var/log", Desc: "Medir espacio de un directorio", Cat: "usage"},
				{Cmd: "tar -czf backup.tar.gz /home/user", Desc: "Comprimir directorio", Cat: "archive"},
			},
		},
		{
			Name:        "process",
			Category:    "process",
			Description: "Process and job control",
			Commands: []Command{
				{Cmd: "ps aux | grep nginx", Desc: "Buscar proceso por nombre", Cat: "inspection"},
				{Cmd: "kill -9 $$", Desc: "Terminar proceso", Cat: "process_control"},
				{Cmd: "jobs", Desc: "Mostrar trabajos activos", Cat: "job_control"},
				{Cmd: "fg %1", Desc: "Traer trabajo a primer plano", Cat: "job_control"},
				{Cmd: "bg %1", Desc: "Enviar trabajo al fondo", Cat: "job_control"},
				{Cmd: "command &", Desc: "Ejecución en segundo plano", Cat: "background"},
				{Cmd: "trap 'echo Signal' SIGINT", Desc: "Manejar señales", Cat: "signals"},
				{Cmd: "top -b -n 1", Desc: "Instantánea de procesos", Cat: "monitoring"},
				{Cmd: "nice -n 10 ./job.sh", Desc: "Ejecutar con prioridad reducida", Cat: "scheduling"},
			},
		},
		{
			Name:        "network",
			Category:    "network",
			Description: "Network inspection and transfer",
			Commands: []Command{
				{Cmd: "curl -sS https://example.com/api | head", Desc: "Consultar API por HTTP", Cat: "http"},
				{Cmd: "wget -c https://example.com/file.iso", Desc: "Descargar con reanudación", Cat: "download"},
				{Cmd: "ss -tlnp", Desc: "Ver puertos en escucha", Cat: "sockets"},
				{Cmd: "ping -c 4 8.8.8.8", Desc: "Probar conectividad", Cat: "diagnostics"},
				{Cmd: "ip addr show", Desc: "Mostrar interfaces de red", Cat: "interfaces"},
				{Cmd: "scp file.txt user@192.168.1.100:/tmp/", Desc: "Copiar archivo por SSH", Cat: "transfer"},
				{Cmd: "rsync -avz src/ user@host:dst/", Desc: "Sincronizar directorios", Cat: "transfer"},
				{Cmd: "dig +short example.com", Desc: "Resolver nombre DNS", Cat: "dns"},
			},
		},
		{
			Name:        "security_audit",
			Category:    "security_audit",
			Description: "Local security auditing",
			Commands: []Command{
				{Cmd: "find / -perm -4000 -type f", Desc: "Buscar binarios setuid", Cat: "permissions"},
				{Cmd: "last -n 20", Desc: "Ver últimos inicios de sesión", Cat: "accounts"},
				{Cmd: "who -a", Desc: "Ver sesiones activas", Cat: "accounts"},
				{Cmd: "chmod 600 ~/.ssh/id_rsa", Desc: "Restringir permisos de clave", Cat: "permissions"},
				{Cmd: "chown root:root /etc/shadow", Desc: "Corregir propietario", Cat: "permissions"},
				{Cmd: "sudo -l", Desc: "Listar privilegios sudo", Cat: "privileges"},
				{Cmd: "cat /etc/passwd | cut -d: -f1", Desc: "Listar cuentas locales", Cat: "accounts"},
				{Cmd: "openssl x509 -in cert.pem -noout -dates", Desc: "Ver vigencia de certificado", Cat: "certificates"},
			},
		},
	}
}

// ShellEncodeInt8 encodes a command with syntax-aware offsets: expansion
// characters +50, operator characters +25, zero-padded to 32 values.
func ShellEncodeInt8(cmd string) []int {
	encoded := make([]int, 0, 32)
	for _, r := range cmd {
		if len(encoded) == 32 {
			break
		}
		v := int(r) % 256
		switch {
		case strings.ContainsRune("$(){}[]", r):
			v = (v + 50) % 256
		case strings.ContainsRune("-=><|&", r):
			v = (v + 25) % 256
		}
		encoded = append(encoded, v)
	}
	for len(encoded) < 32 {
		encoded = append(encoded, 0)
	}
	return encoded
}

var shellInputTemplates = map[string][]string{
	"beginner": {
		"cómo usar %s en bash",
		"qué hace el comando %s",
		"ejemplo básico de %s",
		"ayuda con %s",
		"tutorial %s bash",
	},
	"intermediate": {
		"comando %s con opciones avanzadas",
		"uso completo de %s en scripts",
		"optimizar %s para automatización",
		"combinar %s con otros comandos",
		"mejores prácticas %s",
	},
	"advanced": {
		"implementación avanzada %s en scripting",
		"manejo de errores con %s",
		"casos extremos de %s",
		"rendimiento optimizado %s",
		"debugging complejo con %s",
	},
}

// ShellNaturalInput phrases a request for a command. The complexity level
// selects a template set; the variation index cycles inside it.
func ShellNaturalInput(cmd, complexity string, variation int) string {
	base := strings.Fields(cmd)[0]
	templates, ok := shellInputTemplates[complexity]
	if !ok {
		templates = shellInputTemplates["beginner"]
	}
	return fmt.Sprintf(templates[variation%len(templates)], base)
}

// ShellIntent classifies what a bash command is doing.
func ShellIntent(cmd string) string {
	switch {
	case strings.Contains(cmd, "cd ") || strings.Contains(cmd, "pwd"):
		return "navigate_filesystem"
	case strings.Contains(cmd, "if ") || strings.Contains(cmd, "case "):
		return "conditional_execution"
	case strings.Contains(cmd, "for ") || strings.Contains(cmd, "while "):
		return "iterative_execution"
	case strings.Contains(cmd, "function") || strings.Contains(cmd, "return"):
		return "define_function"
	default:
		return "execute_command"
	}
}
