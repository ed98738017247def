package corpus

import (
	"fmt"
	"strings"
)

// TermuxCategory groups authentic Termux commands by concern.
type TermuxCategory struct {
	Name     string    `yaml:"name" json:"name"`
	Commands []Command `yaml:"commands" json:"commands"`
}

// TermuxCategories returns the built-in Termux corpus: six categories of
// commands verified against the official documentation.
func TermuxCategories() []TermuxCategory {
	return []TermuxCategory{
		{
			Name: "package_management",
			Commands: []Command{
				{Cmd: "pkg update", Desc: "Actualizar lista de paquetes", Cat: "maintenance"},
				{Cmd: "pkg upgrade", Desc: "Actualizar paquetes instalados", Cat: "maintenance"},
				{Cmd: "pkg install python", Desc: "Instalar Python en Termux", Cat: "development"},
				{Cmd: "pkg install git", Desc: "Instalar Git para control de versiones", Cat: "development"},
				{Cmd: "pkg install openssh", Desc: "Instalar servidor SSH", Cat: "networking"},
				{Cmd: "pkg install nodejs", Desc: "Instalar Node.js y npm", Cat: "development"},
				{Cmd: "pkg install clang", Desc: "Instalar compilador C/C++", Cat: "development"},
				{Cmd: "pkg search nginx", Desc: "Buscar paquete nginx", Cat: "search"},
				{Cmd: "pkg list-installed", Desc: "Listar paquetes instalados", Cat: "information"},
				{Cmd: "pkg uninstall vim", Desc: "Desinstalar editor vim", Cat: "removal"},
			},
		},
		{
			Name: "development",
			Commands: []Command{
				{Cmd: "python -m pip install numpy", Desc: "Instalar NumPy para Python", Cat: "python"},
				{Cmd: "gcc -o hello hello.c", Desc: "Compilar programa C", Cat: "compilation"},
				{Cmd: "javac HelloWorld.java", Desc: "Compilar programa Java", Cat: "compilation"},
				{Cmd: "npm init -y", Desc: "Crear proyecto Node.js", Cat: "nodejs"},
				{Cmd: "go run main.go", Desc: "Ejecutar programa Go", Cat: "golang"},
				{Cmd: "rustc main.rs", Desc: "Compilar programa Rust", Cat: "rust"},
				{Cmd: "make clean", Desc: "Limpiar archivos compilados", Cat: "build"},
				{Cmd: "cmake .", Desc: "Configurar proyecto CMake", Cat: "build"},
			},
		},
		{
			Name: "gui_environment",
			Commands: []Command{
				{Cmd: "pkg install x11-repo", Desc: "Añadir repositorio X11", Cat: "gui_setup"},
				{Cmd: "pkg install tigervnc", Desc: "Instalar servidor VNC", Cat: "vnc"},
				{Cmd: "vncserver :1", Desc: "Iniciar servidor VNC en display 1", Cat: "vnc"},
				{Cmd: "pkg install fluxbox", Desc: "Instalar gestor de ventanas", Cat: "window_manager"},
				{Cmd: "pkg install xfce4", Desc: "Instalar entorno XFCE4", Cat: "desktop_environment"},
				{Cmd: "export DISPLAY=:1", Desc: "Configurar variable DISPLAY", Cat: "x11_config"},
				{Cmd: "vncpasswd", Desc: "Configurar contraseña VNC", Cat: "vnc_security"},
				{Cmd: "pkg install novnc", Desc: "Instalar noVNC para acceso web", Cat: "web_vnc"},
			},
		},
		{
			Name: "networking",
			Commands: []Command{
				{Cmd: "sshd", Desc: "Iniciar daemon SSH", Cat: "ssh_server"},
				{Cmd: "ssh user@192.168.1.100", Desc: "Conectar por SSH", Cat: "ssh_client"},
				{Cmd: "ssh-keygen -t rsa", Desc: "Generar claves SSH", Cat: "ssh_keys"},
				{Cmd: "wget https://example.com/file.zip", Desc: "Descargar archivo con wget", Cat: "download"},
				{Cmd: "curl -O https://api.github.com/repos", Desc: "Descargar con curl", Cat: "api_request"},
				{Cmd: "nginx -t", Desc: "Probar configuración nginx", Cat: "web_server"},
				{Cmd: "netstat -tlnp", Desc: "Ver puertos en uso", Cat: "network_info"},
			},
		},
		{
			Name: "containerization",
			Commands: []Command{
				{Cmd: "pkg install proot-distro", Desc: "Instalar PRoot distro", Cat: "proot"},
				{Cmd: "proot-distro install ubuntu", Desc: "Instalar Ubuntu en PRoot", Cat: "ubuntu_install"},
				{Cmd: "proot-distro login ubuntu", Desc: "Entrar a Ubuntu PRoot", Cat: "proot_login"},
				{Cmd: "proot --bind=/sdcard", Desc: "Montar directorio con PRoot", Cat: "proot_mount"},
				{Cmd: "debootstrap focal ubuntu-focal", Desc: "Bootstrap Ubuntu Focal", Cat: "debootstrap"},
				{Cmd: "chroot ubuntu-focal /bin/bash", Desc: "Entrar a chroot Ubuntu", Cat: "chroot"},
			},
		},
		{
			Name: "system_utilities",
			Commands: []Command{
				{Cmd: "termux-setup-storage", Desc: "Configurar acceso a almacenamiento", Cat: "storage"},
				{Cmd: "termux-change-repo", Desc: "Cambiar repositorio de paquetes", Cat: "repo_config"},
				{Cmd: "termux-wake-lock", Desc: "Activar bloqueo de suspensión", Cat: "power_management"},
				{Cmd: "termux-battery-status", Desc: "Ver estado de batería", Cat: "battery_info"},
				{Cmd: "termux-notification", Desc: "Enviar notificación", Cat: "notifications"},
				{Cmd: "termux-share", Desc: "Compartir archivo", Cat: "file_sharing"},
				{Cmd: "termux-clipboard-get", Desc: "Obtener contenido del portapapeles", Cat: "clipboard"},
			},
		},
	}
}

var termuxTechDict = map[string]string{
	"pkg":                  "package_manager_termux",
	"apt":                  "advanced_packaging_tool",
	"dpkg":                 "debian_package_manager",
	"proot":                "pseudo_root_environment",
	"chroot":               "change_root_directory",
	"debootstrap":          "debian_bootstrap_utility",
	"termux-setup-storage": "storage_access_setup",
	"sshd":                 "secure_shell_daemon",
	"vncserver":            "virtual_network_computing_server",
	"x11":                  "x_window_system",
	"fluxbox":              "lightweight_window_manager",
	"nginx":                "web_server_nginx",
	"nodejs":               "javascript_runtime",
	"clang":                "c_cpp_compiler",
	"gcc":                  "gnu_compiler_collection",
}

// TermuxTechTerm resolves a word against the technical dictionary.
func TermuxTechTerm(word string) (string, bool) {
	t, ok := termuxTechDict[word]
	return t, ok
}

// TermuxTechDictSize reports how many terms the dictionary carries.
func TermuxTechDictSize() int {
	return len(termuxTechDict)
}

// TermuxVariations phrases a command as the natural-language requests the
// generator emits for it: an install request when it installs a package,
// always a direct execution request, and a category-specific phrasing for
// GUI and networking commands.
func TermuxVariations(c Command, category string) []Variation {
	var out []Variation

	if strings.Contains(c.Cmd, "install") {
		pkg := TermuxPackageName(c.Cmd)
		out = append(out, Variation{
			NaturalInput:   fmt.Sprintf("cómo instalar %s en termux", pkg),
			SemanticType:   "installation_request",
			Intent:         "install_package",
			ExpectedOutput: fmt.Sprintf("Paquete %s instalado exitosamente", pkg),
			ErrorInfo:      "Verificar conexión a internet y ejecutar pkg update primero",
		})
	}

	first := strings.Fields(c.Cmd)[0]
	out = append(out, Variation{
		NaturalInput:   fmt.Sprintf("ejecutar %s en termux", first),
		SemanticType:   "execution_request",
		Intent:         "run_command",
		ExpectedOutput: c.Desc,
		ErrorInfo:      "Verificar sintaxis del comando y permisos necesarios",
	})

	switch category {
	case "gui_environment":
		out = append(out, Variation{
			NaturalInput:   fmt.Sprintf("configurar entorno gráfico termux %s", first),
			SemanticType:   "configuration_request",
			Intent:         "setup_gui",
			ExpectedOutput: "Entorno gráfico configurado correctamente",
			ErrorInfo:      "Instalar x11-repo primero si hay errores",
		})
	case "networking":
		out = append(out, Variation{
			NaturalInput:   "configurar red ssh termux",
			SemanticType:   "network_setup",
			Intent:         "setup_networking",
			ExpectedOutput: "Configuración de red completada",
			ErrorInfo:      "Verificar permisos de red en Android",
		})
	}

	return out
}

// TermuxPackageName extracts the package argument of an install command.
func TermuxPackageName(cmd string) string {
	if _, after, ok := strings.Cut(cmd, "pkg install"); ok {
		return strings.TrimSpace(after)
	}
	if _, after, ok := strings.Cut(cmd, "apt install"); ok {
		return strings.TrimSpace(after)
	}
	fields := strings.Fields(cmd)
	if len(fields) > 1 {
		return fields[len(fields)-1]
	}
	return "paquete"
}

// TermuxEncodeInt8 encodes the first 16 characters of a command as ord
// mod 256, zero-padded to 16 values.
func TermuxEncodeInt8(cmd string) []int {
	encoded := make([]int, 0, 16)
	for _, r := range cmd {
		if len(encoded) == 16 {
			break
		}
		encoded = append(encoded, int(r)%256)
	}
	for len(encoded) < 16 {
		encoded = append(encoded, 0)
	}
	return encoded
}

// TermuxCommandVariants returns the accepted alternate spellings of a
// command for fuzzy matching.
func TermuxCommandVariants(cmd string) []string {
	variants := []string{cmd}
	if strings.Contains(cmd, "pkg") {
		variants = append(variants,
			strings.ReplaceAll(cmd, "pkg", "package"),
			strings.ReplaceAll(cmd, "pkg", "pckg"))
	}
	if strings.Contains(cmd, "install") {
		variants = append(variants,
			strings.ReplaceAll(cmd, "install", "instal"),
			strings.ReplaceAll(cmd, "install", "add"))
	}
	return variants
}

// TermuxAliases returns English aliases for the Spanish request words.
func TermuxAliases(input string) []string {
	var aliases []string
	if strings.Contains(input, "instalar") {
		aliases = append(aliases, "install", "add", "setup", "configure")
	}
	if strings.Contains(input, "ejecutar") {
		aliases = append(aliases, "run", "execute", "start", "launch")
	}
	if strings.Contains(input, "termux") {
		aliases = append(aliases, "android terminal", "mobile linux", "term")
	}
	return aliases
}

// TermuxTypos returns the common misspellings of a request.
func TermuxTypos(input string) []string {
	return []string{
		strings.ReplaceAll(input, "termux", "tremux"),
		strings.ReplaceAll(input, "instalar", "istalar"),
		strings.ReplaceAll(input, "ejecutar", "ejectar"),
		strings.ReplaceAll(input, "configurar", "confgurar"),
	}
}

var termuxNetworkCmds = []string{"pkg", "apt", "wget", "curl", "git", "ssh", "npm"}

// TermuxRequiresNetwork reports whether a command needs connectivity.
func TermuxRequiresNetwork(cmd string) bool {
	return containsAny(cmd, termuxNetworkCmds)
}

var termuxStorageCmds = []string{"termux-setup-storage", "storage", "sdcard"}

// TermuxRequiresStorage reports whether a command touches shared storage.
func TermuxRequiresStorage(cmd string) bool {
	return containsAny(cmd, termuxStorageCmds)
}

// TermuxDependencies lists the packages a command depends on.
func TermuxDependencies(cmd string) []string {
	switch {
	case strings.Contains(cmd, "python"):
		return []string{"libpython", "openssl"}
	case strings.Contains(cmd, "gcc") || strings.Contains(cmd, "clang"):
		return []string{"binutils", "make"}
	case strings.Contains(cmd, "ssh"):
		return []string{"openssh", "openssl"}
	case strings.Contains(cmd, "vnc"):
		return []string{"x11-repo", "tigervnc"}
	}
	return nil
}
